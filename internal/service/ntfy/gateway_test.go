package ntfy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFWatch/internal/domain/models"
)

func TestSend(t *testing.T) {
	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	g, err := New(srv.URL+"/", "etf-alerts", time.Second)
	require.NoError(t, err)

	err = g.Send(context.Background(), models.Notification{
		Pipeline: models.PipelinePrice,
		Title:    "ETF Alert 15 Oct 2026 - 1 up",
		Body:     "Moves >= 3.0% detected:\n\n📈 Vanguard Energy Index",
		Priority: models.PriorityHigh,
		Tags:     []string{"chart_with_upwards_trend", "money"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/etf-alerts", got.URL.Path)
	assert.Equal(t, "ETF Alert 15 Oct 2026 - 1 up", got.Header.Get("Title"))
	assert.Equal(t, "high", got.Header.Get("Priority"))
	assert.Equal(t, "chart_with_upwards_trend,money", got.Header.Get("Tags"))
	assert.Equal(t, "Moves >= 3.0% detected:\n\n📈 Vanguard Energy Index", body)
}

func TestSendFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	g, err := New(srv.URL, "t", time.Second)
	require.NoError(t, err)
	assert.Error(t, g.Send(context.Background(), models.Notification{Title: "x"}))
}

func TestNewRequiresTopic(t *testing.T) {
	_, err := New("", "", 0)
	assert.ErrorIs(t, err, ErrNoTopic)
}
