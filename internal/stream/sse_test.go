package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		MaxTotal:           1000,
		KeepaliveInterval:  30 * time.Second,
		Interval:           5 * time.Millisecond,
		DefaultAlerts:      countdown.DefaultAlerts,
	}
}

func TestParsePlan(t *testing.T) {
	h := NewHandler(testConfig(), testLogger())

	tests := []struct {
		name       string
		query      string
		wantErr    bool
		infeasible bool
		want       plan
	}{
		{
			name:  "defaults for alerts",
			query: "launch_time=13.79&total_time=18.79",
			want:  plan{launch: 13.79, total: 18.79, alerts: countdown.DefaultAlerts},
		},
		{
			name:  "explicit alerts",
			query: "launch_time=10&total_time=20&align_alert=5&bomb_alert=0",
			want:  plan{launch: 10, total: 20, alerts: countdown.Alerts{Align: 5, Bomb: 0}},
		},
		{
			name:  "zero launch is allowed",
			query: "launch_time=0&total_time=4",
			want:  plan{launch: 0, total: 4, alerts: countdown.DefaultAlerts},
		},
		{name: "missing launch", query: "total_time=5", wantErr: true},
		{name: "missing total", query: "launch_time=5", wantErr: true},
		{name: "non-numeric", query: "launch_time=soon&total_time=5", wantErr: true},
		{name: "infinite", query: "launch_time=Inf&total_time=5", wantErr: true},
		{name: "zero total", query: "launch_time=0&total_time=0", wantErr: true},
		{name: "launch after landing", query: "launch_time=9&total_time=5", wantErr: true},
		{name: "negative alert", query: "launch_time=1&total_time=5&align_alert=-1", wantErr: true},
		{name: "negative launch", query: "launch_time=-3.5&total_time=18", wantErr: true, infeasible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			got, err := h.parsePlan(q)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parsePlan(%q) succeeded, want error", tt.query)
				}
				if errors.Is(err, countdown.ErrInfeasible) != tt.infeasible {
					t.Errorf("ErrInfeasible = %v, want %v (err %v)", !tt.infeasible, tt.infeasible, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePlan(%q): %v", tt.query, err)
			}
			if got != tt.want {
				t.Errorf("parsePlan(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestStreamLimiter(t *testing.T) {
	l := newStreamLimiter(2, 3)

	if !l.acquire("a") || !l.acquire("a") {
		t.Fatal("first two acquires should succeed")
	}
	if l.acquire("a") {
		t.Error("third acquire for the same IP should fail")
	}
	if !l.acquire("b") {
		t.Error("other IP should get a slot")
	}
	if l.acquire("c") {
		t.Error("global cap should reject a fourth stream")
	}

	l.release("a")
	if l.count("a") != 1 {
		t.Errorf("count(a) = %d, want 1", l.count("a"))
	}
	l.release("a")
	l.release("a") // extra release is ignored
	if l.count("a") != 0 || l.active() != 1 {
		t.Errorf("after releases: count(a)=%d active=%d, want 0 and 1", l.count("a"), l.active())
	}
}

func TestCountdownStreamRejectsBadRequests(t *testing.T) {
	h := NewHandler(testConfig(), testLogger())

	tests := []struct {
		query      string
		wantStatus int
	}{
		{"?total_time=5", http.StatusBadRequest},
		{"?launch_time=x&total_time=5", http.StatusBadRequest},
		{"?launch_time=-41.21&total_time=18.79", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		h.HandleCountdown(w, httptest.NewRequest("GET", "/api/v1/stream/countdown"+tt.query, nil))

		if w.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.query, w.Code, tt.wantStatus)
		}
		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body["error"] == "" {
			t.Errorf("%s: expected JSON error body, got %v", tt.query, err)
		}
	}
	if h.limiter.active() != 0 {
		t.Errorf("rejected requests leaked %d limiter slots", h.limiter.active())
	}
}

func TestCountdownStreamRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentPerIP = 1
	h := NewHandler(cfg, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/countdown?launch_time=1&total_time=2", nil)
	req.RemoteAddr = "192.0.2.7:5000"
	h.limiter.acquire("192.0.2.7")

	w := httptest.NewRecorder()
	h.HandleCountdown(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

// readSSE collects data payloads until the server closes the stream.
func readSSE(t *testing.T, body io.Reader) (retry bool, payloads []map[string]any) {
	t.Helper()
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "retry: "):
			retry = true
		case strings.HasPrefix(line, "data: "):
			var m map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &m); err != nil {
				t.Fatalf("bad payload %q: %v", line, err)
			}
			payloads = append(payloads, m)
		}
	}
	return retry, payloads
}

func TestCountdownStreamRunsToLanding(t *testing.T) {
	h := NewHandler(testConfig(), testLogger())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleCountdown))
	defer srv.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(srv.URL + "?launch_time=0.08&total_time=0.2&align_alert=0.05&bomb_alert=0.02")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	retry, msgs := readSSE(t, resp.Body)
	if !retry {
		t.Error("missing retry line")
	}
	if len(msgs) < 3 {
		t.Fatalf("got %d messages, want metadata, events and landing", len(msgs))
	}

	meta := msgs[0]
	if meta["type"] != "metadata" {
		t.Errorf("first message type = %v, want metadata", meta["type"])
	}
	if meta["session"] == "" || meta["launch_time"] != 0.08 || meta["align_alert"] != 0.05 {
		t.Errorf("metadata = %v", meta)
	}

	seen := map[string]int{}
	for _, m := range msgs[1:] {
		seen[m["type"].(string)]++
	}
	if seen["align"] != 1 || seen["launch"] != 1 {
		t.Errorf("alerts seen = align:%d launch:%d, want one each", seen["align"], seen["launch"])
	}
	last := msgs[len(msgs)-1]
	if last["type"] != "landing" || last["message"] != countdown.MsgLanding {
		t.Errorf("last message = %v, want landing", last)
	}

	// The handler releases its slot once the response completes.
	deadline := time.Now().Add(2 * time.Second)
	for h.limiter.active() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.limiter.active() != 0 {
		t.Error("limiter slot not released after landing")
	}
}
