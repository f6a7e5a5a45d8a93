package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotifyMetrics counts order-notification dispatch outcomes per channel.
type NotifyMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewNotifyMetrics registers the dispatch counters on the provided registerer.
func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	if reg == nil {
		return &NotifyMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_dispatch_total",
		Help: "Order notification dispatch outcomes by channel and status.",
	}, []string{"channel", "status"})
	reg.MustRegister(outcomes)
	return &NotifyMetrics{outcomes: outcomes}
}

// Observe records one dispatch outcome.
func (n *NotifyMetrics) Observe(channel, status string) {
	if n == nil || n.outcomes == nil {
		return
	}
	n.outcomes.WithLabelValues(normalizeLabel(channel), normalizeLabel(status)).Inc()
}
