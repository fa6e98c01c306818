package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docanalyser"

// Metrics holds the pipeline and HTTP collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	documentsTotal   *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	documentInFlight prometheus.Gauge
	llmCallsTotal    *prometheus.CounterVec

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total processed documents by status and category.",
		},
		[]string{"status", "category"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "document_duration_seconds",
			Help:      "Ingest plus analysis duration per document.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"status"},
	)
	documentInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_in_flight",
			Help:      "Number of documents currently being processed.",
		},
	)
	llmCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Chat completion calls by stage and status.",
		},
		[]string{"stage", "status"},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(documentsTotal, documentDuration, documentInFlight, llmCallsTotal, requestTotal, requestDuration)

	return &Metrics{
		registry:         registry,
		documentsTotal:   documentsTotal,
		documentDuration: documentDuration,
		documentInFlight: documentInFlight,
		llmCallsTotal:    llmCallsTotal,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
	}
}

// Registry exposes the underlying registry as a Gatherer.
func (m *Metrics) Registry() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StartDocument() {
	m.documentInFlight.Inc()
}

// FinishDocument records one processed document. category is empty for
// documents that failed before classification.
func (m *Metrics) FinishDocument(category string, duration time.Duration, err error) {
	m.documentInFlight.Dec()

	status := "analysed"
	if err != nil {
		status = "failed"
	}
	if category == "" {
		category = "none"
	}
	m.documentsTotal.WithLabelValues(status, category).Inc()
	m.documentDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveLLMCall counts one completion call for stage (classification or extraction).
func (m *Metrics) ObserveLLMCall(stage string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.llmCallsTotal.WithLabelValues(stage, status).Inc()
}

// ObserveRequest records one HTTP request. path should be the route template.
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
