package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// instruments are the Prometheus metrics served at /metrics. Each
// Server owns its registry so parallel test servers never collide.
type instruments struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	wsClients    prometheus.Gauge
	wsFrames     prometheus.Counter
}

func newInstruments() *instruments {
	ins := &instruments{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poker",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "poker",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poker",
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket clients.",
		}),
		wsFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "poker",
			Subsystem: "ws",
			Name:      "frames_received_total",
			Help:      "Frames read from WebSocket clients.",
		}),
	}
	ins.registry.MustRegister(ins.httpRequests, ins.httpDuration, ins.wsClients, ins.wsFrames)
	return ins
}
