package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFWatch/internal/domain/models"
	drepo "ETFWatch/internal/domain/repository"
	applogger "ETFWatch/pkg/logger"
)

var runDay = time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC) // YearDay 288

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakePrices map[string]models.QuoteRecord

func (f fakePrices) FetchQuote(_ context.Context, inst models.Instrument) (models.QuoteRecord, error) {
	q, ok := f[inst.Ticker]
	if !ok {
		return models.QuoteRecord{}, fmt.Errorf("fake %s: %w", inst.Ticker, drepo.ErrNoData)
	}
	q.Ticker, q.Name = inst.Ticker, inst.Name
	return q, nil
}

type fakePE struct {
	ratios map[string]string
	asked  []string
}

func (f *fakePE) FetchPE(_ context.Context, inst models.Instrument) (models.PEQuote, error) {
	f.asked = append(f.asked, inst.Ticker)
	r, ok := f.ratios[inst.Ticker]
	if !ok {
		return models.PEQuote{}, drepo.ErrRateLimited
	}
	return models.PEQuote{Ticker: inst.Ticker, Name: inst.Name, PERatio: d(r)}, nil
}

type fakeGateway struct {
	sent []models.Notification
	err  error
}

func (g *fakeGateway) Send(_ context.Context, n models.Notification) error {
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, n)
	return nil
}

func (g *fakeGateway) Close() error { return nil }

type fakeMetrics struct {
	mu            sync.Mutex
	fetches       map[string]int
	notifications map[string]int
	movers        map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{fetches: map[string]int{}, notifications: map[string]int{}, movers: map[string]int{}}
}

func (m *fakeMetrics) RecordFetch(p, o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[p+"/"+o]++
}

func (m *fakeMetrics) RecordNotification(p, o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[p+"/"+o]++
}

func (m *fakeMetrics) RecordMovers(p string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movers[p] = n
}

func (m *fakeMetrics) RecordLastPctChange(string, float64) {}
func (m *fakeMetrics) RecordLastPERatio(string, float64)   {}
func (m *fakeMetrics) RecordError(string)                  {}
func (m *fakeMetrics) RecordLatency(string, float64)       {}

var priceWatch = []models.Instrument{
	{Ticker: "VDE", Name: "Vanguard Energy Index"},
	{Ticker: "GLD.NZ", Name: "SmartShares Gold ETF"},
	{Ticker: "PHO", Name: "Invesco Water Resources"},
	{Ticker: "AAAU", Name: "Goldman Sachs Physical Gold"},
}

func examplePrices() fakePrices {
	return fakePrices{
		"VDE":    {PrevClose: d("100"), LastClose: d("104.5"), Currency: "USD"},
		"GLD.NZ": {PrevClose: d("10"), LastClose: d("9.6"), Currency: "NZD"},
		"PHO":    {PrevClose: d("70"), LastClose: d("70.7"), Currency: "USD"},
	}
}

func TestPriceJobSendsMovers(t *testing.T) {
	gw := &fakeGateway{}
	m := newFakeMetrics()
	job := NewPriceJob(examplePrices(), gw, m, applogger.Nop(), priceWatch, d("3"), time.UTC, Options{Now: func() time.Time { return runDay }})

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSent, res.Outcome)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 1, res.Absent)
	require.Len(t, gw.sent, 1)
	assert.Equal(t, "ETF Alert 15 Oct 2026 - 1 up, 1 down", gw.sent[0].Title)
	assert.Equal(t, gw.sent[0], *res.Notification)

	assert.Equal(t, 3, m.fetches["price/ok"])
	assert.Equal(t, 1, m.fetches["price/no_data"])
	assert.Equal(t, 1, m.notifications["price/sent"])
	assert.Equal(t, 2, m.movers["price"])
}

func TestPriceJobDatesAlertInLocation(t *testing.T) {
	auckland, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	gw := &fakeGateway{}
	// 18:00 UTC on the 14th is 07:00 on the 15th in Auckland (NZDT).
	evening := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	job := NewPriceJob(examplePrices(), gw, newFakeMetrics(), applogger.Nop(), priceWatch, d("3"), auckland, Options{Now: func() time.Time { return evening }})

	_, err = job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gw.sent, 1)
	assert.Equal(t, "ETF Alert 15 Oct 2026 - 1 up, 1 down", gw.sent[0].Title)

	gw = &fakeGateway{}
	job = NewPriceJob(examplePrices(), gw, newFakeMetrics(), applogger.Nop(), priceWatch, d("3"), time.UTC, Options{Now: func() time.Time { return evening }})
	_, err = job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, gw.sent, 1)
	assert.Equal(t, "ETF Alert 14 Oct 2026 - 1 up, 1 down", gw.sent[0].Title)
}

func TestPriceJobSuppressesWithoutMovers(t *testing.T) {
	gw := &fakeGateway{}
	m := newFakeMetrics()
	job := NewPriceJob(examplePrices(), gw, m, applogger.Nop(), priceWatch, d("10"), time.UTC, Options{})

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuppressed, res.Outcome)
	assert.Nil(t, res.Notification)
	assert.Empty(t, gw.sent)
	assert.Equal(t, 1, m.notifications["price/suppressed"])
}

func TestPriceJobAllAbsentIsSuppressed(t *testing.T) {
	gw := &fakeGateway{}
	job := NewPriceJob(fakePrices{}, gw, newFakeMetrics(), applogger.Nop(), priceWatch, d("0"), time.UTC, Options{})

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, res.Outcome)
	assert.Equal(t, 4, res.Absent)
}

func TestPriceJobDryRun(t *testing.T) {
	gw := &fakeGateway{}
	m := newFakeMetrics()
	job := NewPriceJob(examplePrices(), gw, m, applogger.Nop(), priceWatch, d("3"), time.UTC, Options{DryRun: true, Now: func() time.Time { return runDay }})

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeDryRun, res.Outcome)
	require.NotNil(t, res.Notification)
	assert.Contains(t, res.Notification.Body, "Vanguard Energy Index")
	assert.Empty(t, gw.sent)
	assert.Equal(t, 1, m.notifications["price/dry_run"])
}

func TestPriceJobTransportFailure(t *testing.T) {
	gw := &fakeGateway{err: errors.New("ntfy down")}
	m := newFakeMetrics()
	job := NewPriceJob(examplePrices(), gw, m, applogger.Nop(), priceWatch, d("3"), time.UTC, Options{})

	res, err := job.Run(context.Background())
	assert.ErrorContains(t, err, "ntfy down")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, 1, m.notifications["price/failed"])
}

func TestPriceJobStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewPriceJob(examplePrices(), &fakeGateway{}, newFakeMetrics(), applogger.Nop(), priceWatch, d("3"), time.UTC, Options{})
	_, err := job.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

var peWatch = []models.Instrument{
	{Ticker: "VDE", Name: "Vanguard Energy Index"},
	{Ticker: "PHO", Name: "Invesco Water Resources"},
	{Ticker: "VOO", Name: "S&P 500"},
	{Ticker: "QQQ", Name: "Invesco Nasdaq-100"},
	{Ticker: "VWO", Name: "Vanguard Emerging Mkts"},
	{Ticker: "EFA", Name: "iShares MSCI EAFE"},
}

func TestPEJobChecksTodaysGroup(t *testing.T) {
	// 288 mod 3 = 0: indexes 0 and 3.
	f := &fakePE{ratios: map[string]string{"VDE": "12.3", "QQQ": "31.05"}}
	gw := &fakeGateway{}
	m := newFakeMetrics()
	job := NewPEJob(f, gw, m, applogger.Nop(), peWatch, d("23"), 3, time.UTC, Options{Now: func() time.Time { return runDay }})

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"VDE", "QQQ"}, f.asked)
	assert.Equal(t, OutcomeSent, res.Outcome)
	require.Len(t, gw.sent, 1)
	assert.Equal(t, "ETF P/E 15 Oct 2026 - 1 above, 1 below P/E 23.0", gw.sent[0].Title)
	assert.Equal(t, "Above P/E 23.0:\n🔴 Invesco Nasdaq-100 (QQQ): 31.05"+
		"\n\nBelow P/E 23.0:\n🟢 Vanguard Energy Index (VDE): 12.30"+
		"\n\nGroup 1/3", gw.sent[0].Body)
	assert.Equal(t, 2, m.movers["pe"])
}

func TestPEJobSendsWithoutExtremes(t *testing.T) {
	f := &fakePE{ratios: map[string]string{"VDE": "12.3"}}
	gw := &fakeGateway{}
	job := NewPEJob(f, gw, newFakeMetrics(), applogger.Nop(), peWatch, d("23"), 3, nil, Options{Now: func() time.Time { return runDay }})

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, res.Outcome)
	assert.Equal(t, 1, res.Absent)
	require.Len(t, gw.sent, 1)
	assert.Contains(t, gw.sent[0].Body, "No P/E data: QQQ")
}

func TestPEJobSuppressedWhenNoData(t *testing.T) {
	gw := &fakeGateway{}
	m := newFakeMetrics()
	job := NewPEJob(&fakePE{}, gw, m, applogger.Nop(), peWatch, d("23"), 3, time.UTC, Options{Now: func() time.Time { return runDay }})

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, res.Outcome)
	assert.Empty(t, gw.sent)
	assert.Equal(t, 2, m.fetches["pe/rate_limited"])
}

func TestPEJobRotationFollowsTimezone(t *testing.T) {
	// 23:30 UTC on day 288 is already day 289 in Auckland: 289 mod 3 = 1.
	late := time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC)
	auckland, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	f := &fakePE{ratios: map[string]string{}}
	job := NewPEJob(f, &fakeGateway{}, newFakeMetrics(), applogger.Nop(), peWatch, d("23"), 3, auckland, Options{Now: func() time.Time { return late }})
	_, err = job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"PHO", "VWO"}, f.asked)
}

func TestFetchOutcome(t *testing.T) {
	assert.Equal(t, FetchOK, fetchOutcome(nil))
	assert.Equal(t, FetchNoData, fetchOutcome(fmt.Errorf("x: %w", drepo.ErrNoData)))
	assert.Equal(t, FetchRateLimited, fetchOutcome(drepo.ErrRateLimited))
	assert.Equal(t, FetchFailed, fetchOutcome(errors.New("boom")))
}
