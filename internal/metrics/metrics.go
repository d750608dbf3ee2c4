package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Record outcomes used as the "outcome" label.
const (
	OutcomeApplied    = "applied"
	OutcomeDuplicate  = "duplicate"
	OutcomeUnresolved = "unresolved"
	OutcomeInvalid    = "invalid"
	OutcomeFailed     = "failed"
)

// Recorder collects the metrics of one batch run on its own registry, so a
// run pushes exactly what it observed.
type Recorder struct {
	reg      *prometheus.Registry
	intents  *prometheus.CounterVec
	duration prometheus.Histogram
	lastRun  prometheus.Gauge
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		reg: reg,
		intents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_intents_total",
			Help: "Payment intents processed, by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "payroll_batch_duration_seconds",
			Help:    "Wall time of a payroll deduction run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "payroll_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// Intent counts one record with the given outcome.
func (r *Recorder) Intent(outcome string) {
	r.intents.WithLabelValues(outcome).Inc()
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(d time.Duration, finished time.Time) {
	r.duration.Observe(d.Seconds())
	r.lastRun.Set(float64(finished.Unix()))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Push sends the collected metrics to a pushgateway under job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}
