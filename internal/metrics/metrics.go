package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	Runs         *prometheus.CounterVec
	UserResults  *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	StepDuration *prometheus.HistogramVec
	LastRunUsers prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct. A custom registry keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Dispatch runs by result (completed, failed).",
		}, []string{"result"}),

		UserResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_users_total",
			Help: "Per-user results across all runs.",
		}, []string{"result"}),

		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_run_duration_seconds",
			Help:    "Wall time of a full dispatch run.",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 240},
		}),

		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_step_duration_seconds",
			Help:    "Latency of generation and delivery calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),

		LastRunUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_last_run_users_checked",
			Help: "Scheduled users loaded by the most recent run.",
		}),
	}

	reg.MustRegister(
		m.Runs,
		m.UserResults,
		m.RunDuration,
		m.StepDuration,
		m.LastRunUsers,
	)

	return m
}

// Hooks returns the callbacks expected by dispatch.Hooks.
// Centralises the prometheus calls so the dispatch package stays import-free.
func (m *Metrics) Hooks() (
	onResult func(domain.Result),
	onStep func(step string, latency time.Duration),
	onRun func(summary domain.RunSummary, elapsed time.Duration, err error),
) {
	onResult = func(r domain.Result) {
		m.UserResults.WithLabelValues(r.String()).Inc()
	}
	onStep = func(step string, latency time.Duration) {
		m.StepDuration.WithLabelValues(step).Observe(latency.Seconds())
	}
	onRun = func(s domain.RunSummary, elapsed time.Duration, err error) {
		if err != nil {
			m.Runs.WithLabelValues("failed").Inc()
			return
		}
		m.Runs.WithLabelValues("completed").Inc()
		m.RunDuration.Observe(elapsed.Seconds())
		m.LastRunUsers.Set(float64(s.UsersChecked))
	}
	return
}
