package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rftool"

// Metrics groups the collectors updated by bring-up and the session manager.
type Metrics struct {
	BringupStepSeconds *prometheus.HistogramVec
	BringupFailures    *prometheus.CounterVec
	TileResetFailures  *prometheus.CounterVec
	Sessions           prometheus.Counter
	SessionState       *prometheus.GaugeVec
	Commands           *prometheus.CounterVec
	DataBytes          prometheus.Counter
	WorkerJoinTimeouts prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BringupStepSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bringup_step_seconds",
			Help:      "Duration of each bring-up step.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"step"}),
		BringupFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bringup_failures_total",
			Help:      "Fatal bring-up failures by step.",
		}, []string{"step"}),
		TileResetFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_reset_failures_total",
			Help:      "Tile resets that failed during baseline reset.",
		}, []string{"kind"}),
		Sessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions that reached the active state.",
		}),
		SessionState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "1 for the session manager's current state, 0 otherwise.",
		}, []string{"state"}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched commands by status.",
		}, []string{"status"}),
		DataBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_bytes_total",
			Help:      "Bytes streamed on data connections.",
		}),
		WorkerJoinTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_join_timeouts_total",
			Help:      "Data workers that did not stop within the join timeout.",
		}),
	}
}

// Discard returns collectors registered on a private registry.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
