package usecase

import (
	"context"
	"errors"
	"time"

	"ETFWatch/internal/domain/models"
	drepo "ETFWatch/internal/domain/repository"
	applogger "ETFWatch/pkg/logger"
)

// Notification outcomes recorded in metrics and returned in Result.
const (
	OutcomeSent       = "sent"
	OutcomeSuppressed = "suppressed"
	OutcomeDryRun     = "dry_run"
	OutcomeFailed     = "failed"
)

// Fetch outcomes.
const (
	FetchOK          = "ok"
	FetchNoData      = "no_data"
	FetchRateLimited = "rate_limited"
	FetchFailed      = "failed"
)

// Job is one pipeline run: fetch, analyze, compose, send.
type Job interface {
	Pipeline() models.Pipeline
	Run(ctx context.Context) (Result, error)
}

// Result summarises a run. Notification is nil when the run was suppressed.
type Result struct {
	Pipeline     models.Pipeline
	Outcome      string
	Fetched      int
	Absent       int
	Notification *models.Notification
}

// Options shared by both jobs.
type Options struct {
	DryRun bool
	Now    func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return FetchOK
	case errors.Is(err, drepo.ErrNoData):
		return FetchNoData
	case errors.Is(err, drepo.ErrRateLimited):
		return FetchRateLimited
	default:
		return FetchFailed
	}
}

// deliver sends n unless dry-run, recording the outcome.
func deliver(
	ctx context.Context,
	gw drepo.Gateway,
	m drepo.Metrics,
	l *applogger.Logger,
	opts Options,
	n models.Notification,
	res *Result,
) error {
	res.Notification = &n

	if opts.DryRun {
		l.Info("dry run, notification not sent",
			applogger.String("title", n.Title),
			applogger.String("body", n.Body),
		)
		res.Outcome = OutcomeDryRun
		m.RecordNotification(string(n.Pipeline), OutcomeDryRun)
		return nil
	}

	start := time.Now()
	err := gw.Send(ctx, n)
	m.RecordLatency("send_"+string(n.Pipeline), time.Since(start).Seconds())
	if err != nil {
		res.Outcome = OutcomeFailed
		m.RecordNotification(string(n.Pipeline), OutcomeFailed)
		m.RecordError("send")
		l.Error("notification failed", applogger.String("title", n.Title), applogger.Error(err))
		return err
	}

	res.Outcome = OutcomeSent
	m.RecordNotification(string(n.Pipeline), OutcomeSent)
	l.Info("notification sent", applogger.String("title", n.Title))
	return nil
}
