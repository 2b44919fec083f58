package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicq/patient-queue/internal/notify"
	"github.com/clinicq/patient-queue/internal/ws"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	NotificationLatency *prometheus.HistogramVec
	BroadcastsTotal     *prometheus.CounterVec
	ConnectedClients    prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of successfully delivered notifications.",
		}, []string{"kind"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of permanently failed notifications (retries exhausted or rejected).",
		}, []string{"kind"}),

		NotificationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_delivery_seconds",
			Help:    "End-to-end delivery latency from dequeue to provider ack, retries included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "room_broadcasts_total",
			Help: "Total number of room broadcasts dispatched.",
		}, []string{"room"}),

		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connected_clients",
			Help: "Current number of registered websocket connections.",
		}),
	}

	reg.MustRegister(
		m.NotificationsSent,
		m.NotificationsFailed,
		m.NotificationLatency,
		m.BroadcastsTotal,
		m.ConnectedClients,
	)

	return m
}

// WorkerHooks returns the metric callbacks expected by notify.MetricHooks.
// Centralises the prometheus observation calls so the worker stays
// import-free.
func (m *Metrics) WorkerHooks() notify.MetricHooks {
	return notify.MetricHooks{
		OnSent: func(kind notify.IntentKind, latency time.Duration) {
			m.NotificationsSent.WithLabelValues(string(kind)).Inc()
			m.NotificationLatency.WithLabelValues(string(kind)).Observe(latency.Seconds())
		},
		OnFailed: func(kind notify.IntentKind) {
			m.NotificationsFailed.WithLabelValues(string(kind)).Inc()
		},
	}
}

// HubHooks returns the callbacks expected by ws.HubHooks.
func (m *Metrics) HubHooks() ws.HubHooks {
	return ws.HubHooks{
		OnConnect:    func() { m.ConnectedClients.Inc() },
		OnDisconnect: func() { m.ConnectedClients.Dec() },
		OnBroadcast:  func(room string) { m.BroadcastsTotal.WithLabelValues(room).Inc() },
	}
}
