package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks how gateway events move through the modlog.
type Metrics struct {
	EventsHandled    *prometheus.CounterVec
	EventsSkipped    *prometheus.CounterVec
	Delivered        *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
	Correlations     *prometheus.CounterVec
	DeliveryDuration prometheus.Histogram
	InviteRefreshes  *prometheus.CounterVec
}

// New registers every modlog metric with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spice_modlog_events_handled_total",
			Help: "Gateway events received per event kind",
		}, []string{"kind"}),
		EventsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spice_modlog_events_skipped_total",
			Help: "Events that produced no notification, by kind and reason",
		}, []string{"kind", "reason"}),
		Delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spice_modlog_notifications_delivered_total",
			Help: "Notifications posted to a modlog channel",
		}, []string{"kind"}),
		DeliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spice_modlog_delivery_failures_total",
			Help: "Notifications the delivery surface rejected",
		}, []string{"kind"}),
		Correlations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spice_modlog_audit_correlations_total",
			Help: "Audit log lookups by outcome",
		}, []string{"result"}),
		DeliveryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spice_modlog_delivery_duration_seconds",
			Help:    "Duration of a notification send",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		InviteRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spice_modlog_invite_refreshes_total",
			Help: "Guild invite table refreshes by outcome",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementHandled(kind string) {
	m.EventsHandled.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementSkipped(kind, reason string) {
	m.EventsSkipped.WithLabelValues(kind, reason).Inc()
}

// ObserveDelivery records a send that started at start.
func (m *Metrics) ObserveDelivery(kind string, start time.Time, err error) {
	m.DeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		m.DeliveryFailures.WithLabelValues(kind).Inc()
		return
	}

	m.Delivered.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveCorrelation(found bool) {
	result := "miss"
	if found {
		result = "hit"
	}

	m.Correlations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveInviteRefresh(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.InviteRefreshes.WithLabelValues(result).Inc()
}
