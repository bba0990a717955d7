// Package stream runs launch countdowns on the server and pushes their events
// to browsers. Two transports share one Handler:
//
// SSE, GET /api/v1/stream/countdown, starts the countdown as soon as the
// client connects and closes the stream after landing:
//
//	retry: 4213\n\n
//	data: {"type":"metadata","session":"...","launch_time":13.79,...}\n\n
//	data: {"type":"state","state":"running",...}\n\n
//	data: {"type":"tick","state":"running","remaining":13.74,...}\n\n
//	data: {"type":"align","message":"ALIGN NOW!",...}\n\n
//	data: {"type":"landing","message":"TARGET LANDING!",...}\n\n
//
// WebSocket, GET /api/v1/ws/countdown, waits for the client to send
// {"type":"start"}, {"type":"stop"} or {"type":"reset"} and pushes the same
// events plus a state event for every command, until the client disconnects.
//
// Both take launch_time and total_time (seconds from warp start) and optional
// align_alert and bomb_alert thresholds as query parameters.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
	"github.com/ieatacidme/Tickbomb/internal/httputil"
	"github.com/ieatacidme/Tickbomb/internal/metrics"
)

// Transport labels used in logs and metrics.
const (
	transportSSE = "sse"
	transportWS  = "ws"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int              // Max concurrent streams per IP across both transports (default: 10).
	MaxTotal           int              // Global stream cap (default: 1000).
	KeepaliveInterval  time.Duration    // Keep-alive comment / ping interval (default: 30s).
	Interval           time.Duration    // Countdown tick interval (default: 50ms).
	DefaultAlerts      countdown.Alerts // Thresholds used when the query omits them.
	TrustProxy         bool             // Key limits on X-Forwarded-For / X-Real-IP.
}

// Handler manages countdown streams.
type Handler struct {
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a new streaming handler.
func NewHandler(config Config, logger *slog.Logger) *Handler {
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:  logger,
		now:     time.Now,
	}
}

type metadataMessage struct {
	Type       string  `json:"type"`
	Session    string  `json:"session"`
	LaunchTime float64 `json:"launch_time"`
	TotalTime  float64 `json:"total_time"`
	countdown.Alerts
	IntervalMS int64 `json:"interval_ms"`
}

func (h *Handler) metadata(session string, p plan) metadataMessage {
	return metadataMessage{
		Type:       "metadata",
		Session:    session,
		LaunchTime: p.launch,
		TotalTime:  p.total,
		Alerts:     p.alerts,
		IntervalMS: h.config.Interval.Milliseconds(),
	}
}

// open validates the request and takes a limiter slot. On failure it has
// already written the error response and returns ok == false. The caller
// must call the returned release func.
func (h *Handler) open(w http.ResponseWriter, r *http.Request, transport string) (p plan, ip string, release func(), ok bool) {
	p, err := h.parsePlan(r.URL.Query())
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, countdown.ErrInfeasible) {
			status = http.StatusUnprocessableEntity
		}
		metrics.IncStreamErrors("bad_request")
		writeError(w, status, err.Error())
		return plan{}, "", nil, false
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip = httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"transport", transport,
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return plan{}, "", nil, false
	}

	metrics.IncStreamConnections(transport, "connect")
	metrics.IncStreamsActive(transport)

	release = func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections(transport, "disconnect")
		metrics.DecStreamsActive(transport)
	}
	return p, ip, release, true
}

// HandleCountdown serves the SSE countdown stream.
// GET /api/v1/stream/countdown?launch_time=13.79&total_time=18.79&align_alert=3&bomb_alert=1
func (h *Handler) HandleCountdown(w http.ResponseWriter, r *http.Request) {
	p, ip, release, ok := h.open(w, r, transportSSE)
	if !ok {
		return
	}

	session := uuid.NewString()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"transport", transportSSE,
		"session", session,
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"launch_time", p.launch,
		"total_time", p.total,
	)

	defer func() {
		release()
		h.logger.Info("stream disconnected",
			"transport", transportSSE,
			"session", session,
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's WriteTimeout for this long-lived response.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		session: session,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) so clients of a restarted server do not
	// reconnect in lockstep.
	if err := c.sendRetry(3000 + rand.Intn(4000)); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}

	if err := c.sendJSON(h.metadata(session, p)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "session", session, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	runner := countdown.NewRunner(countdown.New(p.launch, p.total, p.alerts), h.config.Interval, h.now)
	if err := runner.Send(ctx, countdown.CmdStart); err != nil {
		return
	}

	events := make(chan countdown.Event)
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx, true, func(ev countdown.Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-events:
			if err := c.sendJSON(ev); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "session", session, "error", err)
				return
			}
			if ev.Kind == countdown.KindLanding {
				h.logger.Info("countdown landed", "session", session)
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Warn("countdown runner stopped", "session", session, "error", err)
			}
			return

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "session", session, "error", err)
				return
			}
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// errParam wraps a query parameter failure.
func errParam(name, reason string) error {
	return fmt.Errorf("invalid %s parameter, %s", name, reason)
}
