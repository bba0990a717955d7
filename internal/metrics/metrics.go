package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Calculation results recorded by IncCalculation.
const (
	ResultOK         = "ok"
	ResultInvalid    = "invalid"
	ResultDegenerate = "degenerate"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickbomb_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tickbomb_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	calculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickbomb_calculations_total",
			Help: "Warp timing calculations by result.",
		},
		[]string{"result"},
	)

	infeasiblePlansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tickbomb_infeasible_plans_total",
			Help: "Calculations whose detonation time exceeds the total warp time.",
		},
	)

	streamsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickbomb_streams_active",
			Help: "Open countdown streams.",
		},
		[]string{"transport"},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickbomb_stream_connections_total",
			Help: "Countdown stream connects and disconnects.",
		},
		[]string{"transport", "event"},
	)

	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickbomb_stream_messages_total",
			Help: "Countdown events written to streams.",
		},
		[]string{"transport"},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickbomb_stream_errors_total",
			Help: "Countdown stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		calculationsTotal,
		infeasiblePlansTotal,
		streamsActive,
		streamConnectionsTotal,
		streamMessagesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCalculation counts one calculation with the given result label.
func IncCalculation(result string) {
	calculationsTotal.WithLabelValues(result).Inc()
}

// IncInfeasible counts a plan with a negative launch time.
func IncInfeasible() {
	infeasiblePlansTotal.Inc()
}

func IncStreamsActive(transport string) {
	streamsActive.WithLabelValues(transport).Inc()
}

func DecStreamsActive(transport string) {
	streamsActive.WithLabelValues(transport).Dec()
}

// IncStreamConnections records a "connect" or "disconnect" event.
func IncStreamConnections(transport, event string) {
	streamConnectionsTotal.WithLabelValues(transport, event).Inc()
}

func IncStreamMessages(transport string) {
	streamMessagesTotal.WithLabelValues(transport).Inc()
}

func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// knownRoutes are the paths served by the API. Anything else is labelled
// "other" so scanners cannot blow up label cardinality.
var knownRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/calculate":               true,
	"/api/v1/calculate":        true,
	"/api/v1/stream/countdown": true,
	"/api/v1/ws/countdown":     true,
	"/app.js":                  true,
	"/styles.css":              true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack supports the websocket upgrade.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController and the
// websocket upgrader.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
