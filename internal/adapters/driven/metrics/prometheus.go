// Package metrics exposes pipeline events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Prometheus implements the interface.
var _ driven.PipelineMetrics = (*Prometheus)(nil)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "docqa"

// Prometheus records pipeline events on its own registry.
type Prometheus struct {
	documentsProcessed *prometheus.CounterVec
	chunksEmbedded     prometheus.Counter
	chunksFailed       prometheus.Counter
	questionsAnswered  *prometheus.CounterVec
	questionLatency    prometheus.Histogram

	registry *prometheus.Registry
}

// NewPrometheus creates the metrics and registers them, along with the Go
// runtime and process collectors, on a fresh registry.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Prometheus{
		registry: prometheus.NewRegistry(),
	}

	m.documentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents that reached a terminal processing state.",
		},
		[]string{"state"},
	)

	m.chunksEmbedded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_embedded_total",
			Help:      "Chunks embedded and stored.",
		},
	)

	m.chunksFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_embedding_failures_total",
			Help:      "Chunk embedding attempts that failed.",
		},
	)

	m.questionsAnswered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_answered_total",
			Help:      "Questions answered, by whether any context was found.",
		},
		[]string{"grounded"},
	)

	m.questionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "question_duration_seconds",
			Help:      "End-to-end latency of answering a question.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	m.registry.MustRegister(
		m.documentsProcessed,
		m.chunksEmbedded,
		m.chunksFailed,
		m.questionsAnswered,
		m.questionLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// DocumentProcessed counts a document reaching a terminal state.
func (m *Prometheus) DocumentProcessed(state domain.ProcessingState) {
	m.documentsProcessed.WithLabelValues(state.String()).Inc()
}

// ChunksEmbedded counts the outcome of one embedding pass.
func (m *Prometheus) ChunksEmbedded(embedded, failed int) {
	m.chunksEmbedded.Add(float64(embedded))
	m.chunksFailed.Add(float64(failed))
}

// QuestionAnswered counts an answered question and observes its latency.
func (m *Prometheus) QuestionAnswered(grounded bool, seconds float64) {
	label := "false"
	if grounded {
		label = "true"
	}
	m.questionsAnswered.WithLabelValues(label).Inc()
	m.questionLatency.Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}
