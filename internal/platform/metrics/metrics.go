package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the attendance pipeline.
type Metrics struct {
	ReadingsTotal        prometheus.Counter
	ReadingsDebounced    prometheus.Counter
	PollErrors           prometheus.Counter
	ScanEvents           *prometheus.CounterVec
	Subscribers          prometheus.Gauge
	NotificationsSent    prometheus.Counter
	NotificationsDropped prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics against an explicit registerer so tests can
// use a private registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReadingsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeroom_readings_total",
			Help: "Total normalized tag readings received from the reader",
		}),
		ReadingsDebounced: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeroom_readings_debounced_total",
			Help: "Readings suppressed by the debounce filter",
		}),
		PollErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeroom_reader_poll_errors_total",
			Help: "Reader poll attempts that failed at the transport level",
		}),
		ScanEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timeroom_scan_events_total",
			Help: "Scan events emitted by the presence state machine",
		}, []string{"action"}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "timeroom_subscribers",
			Help: "Currently connected WebSocket subscribers",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeroom_notifications_sent_total",
			Help: "Exit digest notifications delivered to the gateway",
		}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeroom_notifications_dropped_total",
			Help: "Exit digest notifications dropped after a failed send",
		}),
	}
}
