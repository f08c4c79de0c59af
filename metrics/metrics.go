package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the collectors of one daemon, on their own registry.
type Metrics struct {
	Registry       *prometheus.Registry
	Requests       prometheus.Counter
	Scripts        *prometheus.CounterVec
	EmergencyStops prometheus.Counter
	QueueLength    prometheus.Gauge
	Clients        prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scriptd_requests_total",
			Help: "Requests accepted into the queue.",
		}),
		Scripts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scriptd_scripts_total",
			Help: "Scripts finished, by outcome.",
		}, []string{"outcome"}),
		EmergencyStops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scriptd_emergency_stops_total",
			Help: "Emergency stops executed.",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scriptd_queue_length",
			Help: "Requests waiting in the queue.",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scriptd_clients",
			Help: "Connected clients.",
		}),
	}
	m.Registry.MustRegister(
		m.Requests,
		m.Scripts,
		m.EmergencyStops,
		m.QueueLength,
		m.Clients,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
