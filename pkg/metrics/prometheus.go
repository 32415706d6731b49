package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const runLabel = "run"

// Recorder implements domain.repository.Metrics using Prometheus.
// Each Recorder owns its registry so batch runs can push it and tests can build many.
type Recorder struct {
	registry      *prometheus.Registry
	fetches       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	movers        *prometheus.GaugeVec
	lastPct       *prometheus.GaugeVec
	lastPE        *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etfwatch_fetches_total",
				Help: "Provider fetches by pipeline and outcome",
			},
			[]string{"pipeline", "outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etfwatch_notifications_total",
				Help: "Notifications by pipeline and outcome (sent, suppressed, dry_run, failed)",
			},
			[]string{"pipeline", "outcome"},
		),
		movers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "etfwatch_alert_entries",
				Help: "Entries included in the last alert of a pipeline",
			},
			[]string{"pipeline"},
		),
		lastPct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "etfwatch_last_pct_change",
				Help: "Last computed daily percentage change",
			},
			[]string{"ticker"},
		),
		lastPE: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "etfwatch_last_pe_ratio",
				Help: "Last fetched trailing P/E ratio",
			},
			[]string{"ticker"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etfwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etfwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
	}
	r.registry.MustRegister(
		r.fetches, r.notifications, r.movers, r.lastPct, r.lastPE, r.errorsTotal, r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the registry for the /metrics handler and other collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordFetch(pipeline, outcome string) {
	r.fetches.WithLabelValues(pipeline, outcome).Inc()
}

func (r *Recorder) RecordNotification(pipeline, outcome string) {
	r.notifications.WithLabelValues(pipeline, outcome).Inc()
}

func (r *Recorder) RecordMovers(pipeline string, count int) {
	r.movers.WithLabelValues(pipeline).Set(float64(count))
}

func (r *Recorder) RecordLastPctChange(ticker string, pct float64) {
	r.lastPct.WithLabelValues(ticker).Set(pct)
}

func (r *Recorder) RecordLastPERatio(ticker string, ratio float64) {
	r.lastPE.WithLabelValues(ticker).Set(ratio)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Push sends the registry to a Pushgateway, grouped by job and run.
// The grouping key must not be a label of any registered collector.
func (r *Recorder) Push(ctx context.Context, url, job, pipeline string) error {
	err := push.New(url, job).
		Gatherer(r.registry).
		Grouping(runLabel, pipeline).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordFetch(string, string)          {}
func (Nop) RecordNotification(string, string)   {}
func (Nop) RecordMovers(string, int)            {}
func (Nop) RecordLastPctChange(string, float64) {}
func (Nop) RecordLastPERatio(string, float64)   {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordLatency(string, float64)       {}
