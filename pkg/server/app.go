package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ETFWatch/internal/domain/models"
	drepo "ETFWatch/internal/domain/repository"
	"ETFWatch/internal/usecase"
	"ETFWatch/pkg/cache"
	"ETFWatch/pkg/config"
	xhttp "ETFWatch/pkg/http"
	applogger "ETFWatch/pkg/logger"
	"ETFWatch/pkg/metrics"
)

// ErrUnknownPipeline is returned for a -job value that names no pipeline.
var ErrUnknownPipeline = errors.New("unknown pipeline")

const lockTTL = time.Hour

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	jobs        map[models.Pipeline]usecase.Job
	gateway     drepo.Gateway
	cache       cache.Service
	recorder    *metrics.Recorder
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	price *usecase.PriceJob,
	pe *usecase.PEJob,
	gateway drepo.Gateway,
	c cache.Service,
	recorder *metrics.Recorder,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg: cfg,
		log: log,
		jobs: map[models.Pipeline]usecase.Job{
			price.Pipeline(): price,
			pe.Pipeline():    pe,
		},
		gateway:     gateway,
		cache:       c,
		recorder:    recorder,
		httpHandler: handler,
	}
}

// RunOnce runs one pipeline and pushes metrics when a Pushgateway is configured.
// A transport failure is returned so the process can exit non-zero.
func (a *App) RunOnce(ctx context.Context, pipeline models.Pipeline) (usecase.Result, error) {
	job, ok := a.jobs[pipeline]
	if !ok {
		return usecase.Result{}, fmt.Errorf("%w: %q", ErrUnknownPipeline, pipeline)
	}

	res, err := job.Run(ctx)
	a.pushMetrics(ctx, pipeline)
	if err != nil {
		return res, err
	}

	a.log.Info("run finished",
		applogger.String("pipeline", string(pipeline)),
		applogger.String("outcome", res.Outcome),
		applogger.Int("fetched", res.Fetched),
		applogger.Int("absent", res.Absent),
	)
	return res, nil
}

// runGuarded runs a job while holding its cache lock; a held lock skips the run.
func (a *App) runGuarded(ctx context.Context, job usecase.Job) error {
	key := cache.GenerateKey("job", string(job.Pipeline()))
	ok, err := a.cache.TryLock(ctx, key, lockTTL)
	if err != nil {
		a.log.Warn("job lock unavailable, running anyway", applogger.String("key", key), applogger.Error(err))
	} else if !ok {
		a.log.Info("job already running elsewhere, skipping", applogger.String("pipeline", string(job.Pipeline())))
		return nil
	} else {
		defer func() {
			if err := a.cache.Unlock(context.WithoutCancel(ctx), key); err != nil {
				a.log.Warn("job unlock failed", applogger.String("key", key), applogger.Error(err))
			}
		}()
	}

	_, err = job.Run(ctx)
	return err
}

// Serve runs both pipelines on their cron schedules and serves the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	sched := NewScheduler(ctx, a.log, a.cfg.ScheduleLocation())
	specs := map[models.Pipeline]string{
		models.PipelinePrice: a.cfg.Schedule.Price,
		models.PipelinePE:    a.cfg.Schedule.PE,
	}
	for _, p := range []models.Pipeline{models.PipelinePrice, models.PipelinePE} {
		job := a.jobs[p]
		if err := sched.Add(string(p), specs[p], func(ctx context.Context) error {
			return a.runGuarded(ctx, job)
		}); err != nil {
			return err
		}
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithRegistry(a.recorder.Registry()))
	}
	srv, err := xhttp.NewServer(a.httpHandler, opts...)
	if err != nil {
		return err
	}

	sched.Start()
	if err := srv.Start(); err != nil {
		sched.Stop()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	if err := srv.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	sched.Stop()
	return nil
}

// Close releases the gateway and cache.
func (a *App) Close() error {
	var errs []error
	if a.gateway != nil {
		if err := a.gateway.Close(); err != nil {
			errs = append(errs, fmt.Errorf("gateway close: %w", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) pushMetrics(ctx context.Context, pipeline models.Pipeline) {
	if !a.cfg.Metrics.Enabled || a.cfg.Metrics.PushURL == "" {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := a.recorder.Push(pctx, a.cfg.Metrics.PushURL, a.cfg.Metrics.Job, string(pipeline)); err != nil {
		a.log.Warn("metrics push failed", applogger.Error(err))
	}
}
