package notes

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the sync engine collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	passes      *prometheus.CounterVec
	operations  *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	lastSuccess prometheus.Gauge
	online      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notesync_sync_passes_total",
				Help: "Reconciliation passes by outcome",
			},
			[]string{"outcome"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notesync_sync_operations_total",
				Help: "Replayed queue operations by type and result",
			},
			[]string{"type", "result"},
		),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notesync_queue_depth",
			Help: "Operations waiting in the mutation queue",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notesync_last_sync_success_timestamp_seconds",
			Help: "Unix time of the last fully successful pass",
		}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notesync_online",
			Help: "1 when the remote API is considered reachable",
		}),
	}
	reg.MustRegister(m.passes, m.operations, m.queueDepth, m.lastSuccess, m.online)
	return m
}

func (m *Metrics) observePass(outcome string, finished time.Time) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.lastSuccess.Set(float64(finished.Unix()))
	}
}

func (m *Metrics) observeOp(t OpType, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(string(t), result).Inc()
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) setOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.online.Set(1)
	} else {
		m.online.Set(0)
	}
}
