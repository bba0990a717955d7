package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
	"github.com/ieatacidme/Tickbomb/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// controlMessage is a client frame: {"type":"start"|"stop"|"reset"}.
type controlMessage struct {
	Type string `json:"type"`
}

// maxControlMessage caps a single client frame.
const maxControlMessage = 512

// HandleControl serves the interactive WebSocket countdown.
// GET /api/v1/ws/countdown?launch_time=13.79&total_time=18.79
func (h *Handler) HandleControl(w http.ResponseWriter, r *http.Request) {
	p, ip, release, ok := h.open(w, r, transportWS)
	if !ok {
		return
	}
	defer release()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		metrics.IncStreamErrors("upgrade")
		h.logger.Warn("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"transport", transportWS,
		"session", session,
		"remote_ip", ip,
		"launch_time", p.launch,
		"total_time", p.total,
	)
	defer func() {
		h.logger.Info("stream disconnected",
			"transport", transportWS,
			"session", session,
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	cd := countdown.New(p.launch, p.total, p.alerts)
	ws := &wsClient{conn: conn}
	if err := ws.send(h.metadata(session, p)); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}
	if err := ws.send(cd.Snapshot()); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	runner := countdown.NewRunner(cd, h.config.Interval, h.now)

	// Reader: a missing pong or a closed socket ends the session.
	pongWait := 2 * h.config.KeepaliveInterval
	conn.SetReadLimit(maxControlMessage)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("websocket read error", "session", session, "error", err)
				}
				return
			}
			var m controlMessage
			if err := json.Unmarshal(data, &m); err != nil {
				metrics.IncStreamErrors("bad_message")
				continue
			}
			cmd, err := countdown.ParseCommand(m.Type)
			if err != nil {
				metrics.IncStreamErrors("bad_message")
				h.logger.Debug("ignoring control message", "session", session, "error", err)
				continue
			}
			if err := runner.Send(ctx, cmd); err != nil {
				return
			}
		}
	}()

	// Pinger. WriteControl may run concurrently with the runner's writes.
	go func() {
		ticker := time.NewTicker(h.config.KeepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	err = runner.Run(ctx, false, func(ev countdown.Event) error {
		if ev.Kind == countdown.KindLanding {
			h.logger.Info("countdown landed", "session", session)
		}
		return ws.send(ev)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("websocket send error", "session", session, "error", err)
		return
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// wsClient writes JSON frames. Only the runner goroutine calls send.
type wsClient struct {
	conn *websocket.Conn
}

func (c *wsClient) send(v any) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		return err
	}
	metrics.IncStreamMessages(transportWS)
	return nil
}
