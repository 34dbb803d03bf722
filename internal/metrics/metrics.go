package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "captioner"

// Job outcomes as recorded by the jobs counter.
const (
	OutcomeCompleted = "completed"
	OutcomePanicked  = "panicked"
)

// Metrics holds the collectors of one captioner process. Each instance owns
// its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Jobs            *prometheus.CounterVec
	Segments        *prometheus.HistogramVec
	EncodeDuration  prometheus.Histogram
	EncodesInFlight prometheus.Gauge
	EncodeWaiting   prometheus.Gauge
	CleanupFailures prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Render jobs by final outcome.",
		}, []string{"outcome"}),
		Segments: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "caption_segments",
			Help:      "Text segments produced per job.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"strategy"}),
		EncodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Wall time of successful encoder runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		EncodesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "encodes_in_flight",
			Help:      "Encoder processes currently running.",
		}),
		EncodeWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "encodes_waiting",
			Help:      "Jobs waiting for an encoder slot.",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Scratch files that could not be removed.",
		}),
	}

	m.registry.MustRegister(
		m.Jobs,
		m.Segments,
		m.EncodeDuration,
		m.EncodesInFlight,
		m.EncodeWaiting,
		m.CleanupFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
