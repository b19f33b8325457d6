package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "weather_warning"

// promMetrics holds the Prometheus instruments fed by the sampler and the
// request path.
type promMetrics struct {
	activeConnections prometheus.Gauge
	dataPoints        prometheus.Gauge
	series            prometheus.Gauge
	warnings          prometheus.Gauge
	requests          *prometheus.CounterVec
	responseTime      prometheus.Histogram
	rejected          prometheus.Counter
}

// NewRegistry creates a Prometheus registry with Go runtime and process
// collectors already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Connections currently registered",
		}),
		dataPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "data_points_stored",
			Help:      "Readings held across all series",
		}),
		series: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series",
			Help:      "Distinct (sensor kind, location) series",
		}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warning_history_size",
			Help:      "Warnings held in the bounded history",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by command",
		}, []string{"command"}),
		responseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from command receipt to response ready",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections refused at the admission ceiling",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.activeConnections,
			m.dataPoints,
			m.series,
			m.warnings,
			m.requests,
			m.responseTime,
			m.rejected,
		)
	}
	return m
}
