package metrics

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/app.js", "/app.js"},
		{"/styles.css", "/styles.css"},
		{"/calculate", "/calculate"},
		{"/api/v1/calculate", "/api/v1/calculate"},
		{"/api/v1/stream/countdown", "/api/v1/stream/countdown"},
		{"/api/v1/ws/countdown", "/api/v1/ws/countdown"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/calculate", "other"},
		{"/api/v1/calculate/extra", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unknown paths produce exactly one
// distinct path label.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute("/scan/"+strconv.Itoa(i))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for unknown paths, got %d: %v", len(seen), seen)
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))

	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestMiddlewareKeepsFlusher(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Error("wrapped writer lost http.Flusher")
		}
		if _, ok := w.(http.Hijacker); !ok {
			t.Error("wrapped writer lost http.Hijacker")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(calculationsTotal.WithLabelValues(ResultDegenerate))
	IncCalculation(ResultDegenerate)
	if got := testutil.ToFloat64(calculationsTotal.WithLabelValues(ResultDegenerate)) - before; got != 1 {
		t.Errorf("calculations delta = %v, want 1", got)
	}

	IncStreamsActive("sse")
	IncStreamsActive("sse")
	DecStreamsActive("sse")
	if got := testutil.ToFloat64(streamsActive.WithLabelValues("sse")); got != 1 {
		t.Errorf("streams active = %v, want 1", got)
	}
	DecStreamsActive("sse")
}

func TestHandlerExposesMetrics(t *testing.T) {
	IncInfeasible()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(w.Body.String(), "tickbomb_infeasible_plans_total") {
		t.Error("metrics output missing tickbomb_infeasible_plans_total")
	}
}
