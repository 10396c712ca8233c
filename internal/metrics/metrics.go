package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── Invocation metrics ──────────────────────────────────────
// Counts and latency for every dispatched tool call, labeled by tool
// name and outcome. Served by the ops endpoint's /metrics handler.

type Recorder struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewRecorder registers the gateway metrics on reg. Tests pass a fresh
// registry to stay isolated from each other.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datagate_invocations_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "datagate_invocation_seconds",
			Help:    "Tool invocation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
}

// Observe records one completed invocation. Safe on a nil Recorder so
// callers without metrics wired can skip the nil checks.
func (r *Recorder) Observe(tool string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.invocations.WithLabelValues(tool, outcome).Inc()
	r.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
