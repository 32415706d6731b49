package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/domain/repository"
	"ETFWatch/pkg/cache"
)

func newTestClient(srvURL string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(srvURL),
		WithRequestInterval(0),
		WithRateLimitWait(0),
	}
	c := New("test-key", append(base, opts...)...)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func respond(bodies ...string) (*httptest.Server, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		i := int(n) - 1
		if i >= len(bodies) {
			i = len(bodies) - 1
		}
		_, _ = w.Write([]byte(bodies[i]))
	}))
	return srv, &calls
}

func TestFetchPE(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{"function": q.Get("function"), "symbol": q.Get("symbol"), "apikey": q.Get("apikey")}
		_, _ = w.Write([]byte(`{"Symbol":"VOO","PERatio":"26.456"}`))
	}))
	defer srv.Close()

	q, err := newTestClient(srv.URL).FetchPE(context.Background(), models.Instrument{Ticker: "VOO", Name: "S&P 500"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"function": "OVERVIEW", "symbol": "VOO", "apikey": "test-key"}, gotQuery)
	assert.Equal(t, "S&P 500", q.Name)
	assert.Equal(t, "26.46", q.PERatio.String())
}

func TestFetchPEMissingRatio(t *testing.T) {
	for _, raw := range []string{`"None"`, `"-"`, `"0"`, `""`} {
		srv, _ := respond(`{"Symbol":"GLD","PERatio":` + raw + `}`)
		_, err := newTestClient(srv.URL).FetchPE(context.Background(), models.Instrument{Ticker: "GLD"})
		assert.ErrorIs(t, err, repository.ErrNoData, raw)
		srv.Close()
	}
}

func TestFetchPEErrorMessage(t *testing.T) {
	srv, _ := respond(`{"Error Message":"Invalid API call."}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPE(context.Background(), models.Instrument{Ticker: "NOPE"})
	assert.ErrorIs(t, err, repository.ErrNoData)
}

func TestFetchPERetriesOnceAfterQuota(t *testing.T) {
	srv, calls := respond(
		`{"Information":"Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`,
		`{"PERatio":"14.2"}`,
	)
	defer srv.Close()

	q, err := newTestClient(srv.URL).FetchPE(context.Background(), models.Instrument{Ticker: "VWO"})
	require.NoError(t, err)
	assert.Equal(t, "14.2", q.PERatio.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestFetchPEGivesUpAfterSecondQuota(t *testing.T) {
	srv, calls := respond(`{"Note":"API call frequency exceeded"}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPE(context.Background(), models.Instrument{Ticker: "VWO"})
	assert.ErrorIs(t, err, repository.ErrRateLimited)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestFetchPEUsesCache(t *testing.T) {
	srv, calls := respond(`{"PERatio":"31.05"}`)
	defer srv.Close()

	mc := cache.NewMemoryCache()
	defer mc.Close()

	c := newTestClient(srv.URL, WithCache(mc, time.Hour))
	c.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	for i := 0; i < 3; i++ {
		q, err := c.FetchPE(context.Background(), models.Instrument{Ticker: "QQQ", Name: "Invesco Nasdaq-100"})
		require.NoError(t, err)
		assert.Equal(t, "31.05", q.PERatio.String())
		assert.Equal(t, "Invesco Nasdaq-100", q.Name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	c.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }
	_, err := c.FetchPE(context.Background(), models.Instrument{Ticker: "QQQ"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls), "new day misses the cache")
}

func TestFetchPEHonoursCancelledContext(t *testing.T) {
	srv, _ := respond(`{"PERatio":"20"}`)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv.URL).FetchPE(ctx, models.Instrument{Ticker: "VOO"})
	assert.Error(t, err)
}

func TestNewDefaultsToDemoKey(t *testing.T) {
	assert.Equal(t, DemoKey, New("").apiKey)
}
