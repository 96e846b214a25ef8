package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics uses a per-server registry so tests can build multiple
// servers without duplicate-registration panics.
type serverMetrics struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	cellRuns     *prometheus.CounterVec
	detections   prometheus.Counter
	aiRequests   *prometheus.CounterVec
	experiments  *prometheus.CounterVec
	runsSaved    prometheus.Counter
}

func newServerMetrics() *serverMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &serverMetrics{
		registry: registry,
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modelpad",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		cellRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelpad",
			Name:      "cell_runs_total",
			Help:      "Cell executions by outcome.",
		}, []string{"outcome"}),
		detections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modelpad",
			Name:      "models_detected_total",
			Help:      "Cell runs that produced a detected model.",
		}),
		aiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelpad",
			Name:      "ai_requests_total",
			Help:      "AI gateway calls by capability and outcome.",
		}, []string{"capability", "outcome"}),
		experiments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelpad",
			Name:      "experiments_total",
			Help:      "Experiment terminal states.",
		}, []string{"status"}),
		runsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modelpad",
			Name:      "runs_saved_total",
			Help:      "Runs persisted via the save-run endpoint.",
		}),
	}
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *serverMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		m.httpDuration.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
