package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder()
	r.SessionStarted()
	r.SessionStarted()
	r.AttemptFinished(true)
	r.AttemptFinished(false)
	r.AttemptFinished(false)
	r.AttemptSaveFailed()

	if got := testutil.ToFloat64(r.sessionsStarted); got != 2 {
		t.Fatalf("expected 2 sessions, got %v", got)
	}
	if got := testutil.ToFloat64(r.attemptsFinished.WithLabelValues("failed")); got != 2 {
		t.Fatalf("expected 2 failed attempts, got %v", got)
	}
	if got := testutil.ToFloat64(r.saveFailures); got != 1 {
		t.Fatalf("expected 1 save failure, got %v", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := NewRecorder()
	router := chi.NewRouter()
	router.Use(r.Middleware)
	router.Get("/api/cases/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Handle("/metrics", r.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cases/abc", nil))

	if got := testutil.ToFloat64(r.requests.WithLabelValues("/api/cases/{id}", http.MethodGet, "404")); got != 1 {
		t.Fatalf("expected 1 request recorded, got %v", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("expected scrape output to include request counter")
	}
}
