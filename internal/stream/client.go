package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ieatacidme/Tickbomb/internal/metrics"
)

// writeWait bounds every single write to a stream.
const writeWait = 10 * time.Second

// client manages a single SSE connection's write operations.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	session string
	logger  *slog.Logger

	messagesSent int64
	bytesSent    int64
}

// sendJSON marshals v as JSON and sends it as an SSE "data:" message.
// SSE format: "data: {json}\n\n"
func (c *client) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := c.write(fmt.Sprintf("data: %s\n\n", data)); err != nil {
		return err
	}
	c.messagesSent++
	metrics.IncStreamMessages(transportSSE)
	return nil
}

// sendRetry tells the browser how long to wait before reconnecting.
func (c *client) sendRetry(ms int) error {
	return c.write(fmt.Sprintf("retry: %d\n\n", ms))
}

// sendKeepalive sends an SSE comment line to keep the connection alive.
// SSE comment format: ":\n\n"
func (c *client) sendKeepalive() error {
	if err := c.write(":\n\n"); err != nil {
		return fmt.Errorf("keepalive: %w", err)
	}
	return nil
}

func (c *client) write(msg string) error {
	// Extend the write deadline before each write; the connection outlives
	// the server's WriteTimeout.
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("could not set write deadline", "session", c.session, "error", err)
	}

	n, err := fmt.Fprint(c.w, msg)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.flusher.Flush()
	c.bytesSent += int64(n)
	return nil
}
