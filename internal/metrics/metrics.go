// Package metrics exposes Prometheus collectors for quiz activity and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements app.Metrics and serves the scrape endpoint.
type Recorder struct {
	registry *prometheus.Registry

	sessionsStarted  prometheus.Counter
	attemptsFinished *prometheus.CounterVec
	saveFailures     prometheus.Counter
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Quiz sessions started.",
		}),
		attemptsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_attempts_finished_total",
			Help: "Quiz attempts finished, by outcome.",
		}, []string{"outcome"}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_attempt_save_failures_total",
			Help: "Finished attempts that could not be persisted.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.sessionsStarted,
		r.attemptsFinished,
		r.saveFailures,
		r.requests,
		r.requestDuration,
	)
	return r
}

func (r *Recorder) SessionStarted() { r.sessionsStarted.Inc() }

func (r *Recorder) AttemptFinished(passed bool) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	r.attemptsFinished.WithLabelValues(outcome).Inc()
}

func (r *Recorder) AttemptSaveFailed() { r.saveFailures.Inc() }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency keyed by the chi route pattern.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.requests.WithLabelValues(route, req.Method, strconv.Itoa(status)).Inc()
		r.requestDuration.WithLabelValues(route, req.Method).Observe(time.Since(start).Seconds())
	})
}
