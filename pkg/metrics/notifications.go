package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics counts generated notifications per kind.
type NotificationMetrics struct {
	generated *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	generated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_generated_total",
		Help:      "Notifications generated by kind.",
	}, []string{"kind"})
	reg.MustRegister(generated)
	return &NotificationMetrics{generated: generated}
}

// IncGenerated records one generated notification of kind.
func (n *NotificationMetrics) IncGenerated(kind string) {
	if n == nil || n.generated == nil {
		return
	}
	n.generated.WithLabelValues(normalizeLabel(kind)).Inc()
}
