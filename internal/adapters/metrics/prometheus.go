package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "argo_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_turns_total",
		Help: "Total conversation turns by mode and outcome",
	}, []string{"mode", "status"})

	TurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "argo_turn_duration_seconds",
		Help:    "End-to-end turn duration",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"mode"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_llm_requests_total",
		Help: "Total LLM requests",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "argo_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"model"})

	ToolRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_tool_runs_total",
		Help: "Total tool executions",
	}, []string{"tool", "status"})

	ToolRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "argo_tool_run_duration_seconds",
		Help:    "Tool execution duration",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
	}, []string{"tool"})

	ChunksRetrieved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_chunks_retrieved_total",
		Help: "Chunks retrieved from the vector store by namespace",
	}, []string{"namespace"})
)
