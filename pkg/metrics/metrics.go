// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "umbra",
		Name:      "llm_calls_total",
		Help:      "LLM generation calls by model, task and outcome.",
	}, []string{"model", "task", "outcome"})

	LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "umbra",
		Name:      "llm_call_duration_seconds",
		Help:      "Wall time of LLM calls including retries.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"model", "task"})

	Embeddings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "umbra",
		Name:      "embeddings_total",
		Help:      "Texts embedded by outcome.",
	}, []string{"outcome"})

	PublicationsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "umbra",
		Name:      "publications_processed_total",
		Help:      "Publications that reached a terminal processing status.",
	}, []string{"status"})

	SearchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "umbra",
		Name:      "search_duration_seconds",
		Help:      "Semantic search latency by retrieval mode.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})

	JobQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "umbra",
		Name:      "job_queue_depth",
		Help:      "Jobs waiting in the background queue.",
	})

	JobsRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "umbra",
		Name:      "jobs_total",
		Help:      "Background jobs by kind and outcome.",
	}, []string{"kind", "outcome"})
)
