package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/usecase"
	"ETFWatch/pkg/cache"
	"ETFWatch/pkg/config"
	applogger "ETFWatch/pkg/logger"
	"ETFWatch/pkg/metrics"
)

type stubJob struct {
	pipeline models.Pipeline
	runs     int32
	err      error
	block    chan struct{}
}

func (j *stubJob) Pipeline() models.Pipeline { return j.pipeline }

func (j *stubJob) Run(ctx context.Context) (usecase.Result, error) {
	atomic.AddInt32(&j.runs, 1)
	if j.block != nil {
		<-j.block
	}
	return usecase.Result{Pipeline: j.pipeline, Outcome: usecase.OutcomeSent}, j.err
}

func newTestApp(cfg *config.Config, c cache.Service, jobs ...*stubJob) *App {
	a := &App{
		cfg:      cfg,
		log:      applogger.Nop(),
		jobs:     map[models.Pipeline]usecase.Job{},
		cache:    c,
		recorder: metrics.New(),
	}
	for _, j := range jobs {
		a.jobs[j.pipeline] = j
	}
	return a
}

func TestRunOnce(t *testing.T) {
	price := &stubJob{pipeline: models.PipelinePrice}
	a := newTestApp(config.Default(), cache.Noop{}, price)

	res, err := a.RunOnce(context.Background(), models.PipelinePrice)
	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeSent, res.Outcome)
	assert.Equal(t, int32(1), price.runs)
}

func TestRunOnceUnknownPipeline(t *testing.T) {
	a := newTestApp(config.Default(), cache.Noop{})
	_, err := a.RunOnce(context.Background(), "weekly")
	assert.ErrorIs(t, err, ErrUnknownPipeline)
}

func TestRunOnceReturnsJobError(t *testing.T) {
	pe := &stubJob{pipeline: models.PipelinePE, err: errors.New("transport down")}
	a := newTestApp(config.Default(), cache.Noop{}, pe)

	_, err := a.RunOnce(context.Background(), models.PipelinePE)
	assert.EqualError(t, err, "transport down")
}

func TestRunOncePushesMetrics(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		_, _ = io.Copy(io.Discard, r.Body)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Metrics.PushURL = srv.URL
	a := newTestApp(cfg, cache.Noop{}, &stubJob{pipeline: models.PipelinePE})

	_, err := a.RunOnce(context.Background(), models.PipelinePE)
	require.NoError(t, err)
	assert.Equal(t, "/metrics/job/etfwatch/run/pe", path.Load())
}

func TestRunGuardedSkipsWhenLocked(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()

	job := &stubJob{pipeline: models.PipelinePE}
	a := newTestApp(config.Default(), mc, job)

	ok, err := mc.TryLock(context.Background(), "job:pe", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.runGuarded(context.Background(), job))
	assert.Equal(t, int32(0), job.runs)

	require.NoError(t, mc.Unlock(context.Background(), "job:pe"))
	require.NoError(t, a.runGuarded(context.Background(), job))
	assert.Equal(t, int32(1), job.runs)

	held, _ := mc.Exists(context.Background(), "job:pe")
	assert.False(t, held, "lock released after run")
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	a := newTestApp(cfg, cache.Noop{},
		&stubJob{pipeline: models.PipelinePrice},
		&stubJob{pipeline: models.PipelinePE},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeRejectsBadSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.Price = "not a cron"
	a := newTestApp(cfg, cache.Noop{},
		&stubJob{pipeline: models.PipelinePrice},
		&stubJob{pipeline: models.PipelinePE},
	)

	assert.Error(t, a.Serve(context.Background()))
}

func TestSchedulerEntries(t *testing.T) {
	s := NewScheduler(context.Background(), applogger.Nop(), time.UTC)
	require.NoError(t, s.Add("price", "0 7,19 * * 1-5", func(context.Context) error { return nil }))
	require.NoError(t, s.Add("pe", "@every 1h", func(context.Context) error { return nil }))
	assert.Error(t, s.Add("bad", "61 * * * *", func(context.Context) error { return nil }))

	s.Start()
	defer s.Stop()
	for _, next := range s.Entries() {
		assert.True(t, next.After(time.Now().Add(-time.Second)))
	}
}
