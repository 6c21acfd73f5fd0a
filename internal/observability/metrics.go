package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	CommandsTotal        *prometheus.CounterVec
	InterpreterRequests  *prometheus.CounterVec
	InterpreterLatency   prometheus.Histogram
	ClassifierRejections prometheus.Counter
	SeriesInstances      prometheus.Counter
	EventSubscribers     prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CommandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Executed commands by action and outcome.",
		}, []string{"action", "outcome"}),
		InterpreterRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpreter_requests_total",
			Help:      "Interpreter calls by outcome.",
		}, []string{"outcome"}),
		InterpreterLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interpreter_latency_ms",
			Help:      "Interpreter round-trip latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 20000},
		}),
		ClassifierRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_rejections_total",
			Help:      "Inputs the command classifier filtered out before interpretation.",
		}),
		SeriesInstances: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_instances_created_total",
			Help:      "Task instances created by series materialization.",
		}),
		EventSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Connected task event stream clients.",
		}),
	}
}

func (m *Metrics) ObserveInterpreterLatency(d time.Duration) {
	m.InterpreterLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
