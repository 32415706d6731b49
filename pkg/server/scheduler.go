package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	applogger "ETFWatch/pkg/logger"
)

// Task is a unit of scheduled work.
type Task func(ctx context.Context) error

// Scheduler runs tasks on standard five-field cron expressions in a fixed location.
type Scheduler struct {
	cron *cron.Cron
	log  *applogger.Logger
	ctx  context.Context
}

// NewScheduler creates a scheduler. Tasks receive ctx, so cancelling it aborts running tasks.
func NewScheduler(ctx context.Context, log *applogger.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	l := log.With(applogger.String("component", "scheduler"))
	cl := cronLogger{l}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: l,
		ctx: ctx,
	}
}

// Add registers task under name.
// Schedule examples:
//   - "0 7,19 * * 1-5"  - 07:00 and 19:00 on weekdays
//   - "30 7 * * 1-5"    - 07:30 on weekdays
//   - "@every 6h"
func (s *Scheduler) Add(name, schedule string, task Task) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug("running task", applogger.String("task", name))
		if err := task(s.ctx); err != nil {
			s.log.Error("task failed", applogger.String("task", name), applogger.Error(err))
			return
		}
		s.log.Debug("task completed", applogger.String("task", name))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, schedule, err)
	}

	s.log.Info("task registered", applogger.String("task", name), applogger.String("schedule", schedule))
	return nil
}

// Entries returns the next activation of every registered task.
func (s *Scheduler) Entries() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, len(entries))
	for i, e := range entries {
		out[i] = e.Next
	}
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, applogger.Any(key, kv[i+1]))
	}
	return fields
}
