package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
	AIPromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Prompt token counts per AI request",
			Buckets: []float64{256, 512, 1024, 2048, 4096, 8192, 16384},
		},
		[]string{"operation"},
	)
	AIKeySelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_key_selections_total",
			Help: "Credential selections by pool index",
		},
		[]string{"key_index"},
	)

	// ParseRecoveriesTotal counts which recovery tier finally yielded a
	// usable payload (tier label "1" is a clean parse).
	ParseRecoveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_parse_recoveries_total",
			Help: "Successful response parses by recovery tier",
		},
		[]string{"kind", "tier"},
	)
	ParseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_parse_failures_total",
			Help: "Responses no recovery tier could salvage",
		},
		[]string{"kind"},
	)

	GenerationTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_tasks_total",
			Help: "Generation tasks by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	GenerationBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_batch_size",
			Help:    "Number of questions persisted per generation task",
			Buckets: []float64{0, 5, 10, 20, 30, 45, 60, 85, 100},
		},
		[]string{"kind"},
	)
)

// InitMetrics registers all Prometheus collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AIPromptTokens)
	prometheus.MustRegister(AIKeySelections)
	prometheus.MustRegister(ParseRecoveriesTotal)
	prometheus.MustRegister(ParseFailuresTotal)
	prometheus.MustRegister(GenerationTasksTotal)
	prometheus.MustRegister(GenerationBatchSize)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}
