package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion outcome labels.
const (
	OutcomeUploaded = "uploaded"
	OutcomeIndexed  = "indexed"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
)

type Metrics struct {
	registry *prometheus.Registry

	Ingestions       *prometheus.CounterVec
	IngestionSeconds prometheus.Histogram
	PollAttempts     prometheus.Histogram
	ChatRequests     *prometheus.CounterVec
	Citations        prometheus.Counter
	BackendErrors    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filesearch_ingestions_total",
			Help: "Ingestion calls by terminal outcome.",
		}, []string{"outcome"}),
		IngestionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "filesearch_ingestion_duration_seconds",
			Help:    "Wall time of an ingestion call, staging to cleanup.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		PollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "filesearch_ingestion_poll_attempts",
			Help:    "Operation polls issued per ingestion before done was observed.",
			Buckets: prometheus.LinearBuckets(0, 5, 12),
		}),
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filesearch_chat_requests_total",
			Help: "Chat generations by whether a store was bound and whether they succeeded.",
		}, []string{"grounded", "status"}),
		Citations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filesearch_chat_citations_total",
			Help: "Citations extracted from grounding metadata.",
		}),
		BackendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filesearch_backend_errors_total",
			Help: "Failed backend calls by operation.",
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.Ingestions,
		m.IngestionSeconds,
		m.PollAttempts,
		m.ChatRequests,
		m.Citations,
		m.BackendErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The recording helpers below accept a nil receiver so components can run
// without metrics.

func (m *Metrics) BackendError(operation string) {
	if m == nil {
		return
	}
	m.BackendErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveIngestion(outcome string, elapsed time.Duration, polls int) {
	if m == nil {
		return
	}
	m.Ingestions.WithLabelValues(outcome).Inc()
	m.IngestionSeconds.Observe(elapsed.Seconds())
	if outcome != OutcomeUploaded {
		m.PollAttempts.Observe(float64(polls))
	}
}

func (m *Metrics) ObserveChat(grounded, ok bool, citations int) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.ChatRequests.WithLabelValues(strconv.FormatBool(grounded), status).Inc()
	m.Citations.Add(float64(citations))
}
