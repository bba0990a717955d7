package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
	"github.com/ieatacidme/Tickbomb/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testServer() *Server {
	webFS := fstest.MapFS{
		"index.html": {Data: []byte("<!doctype html><title>Tick Bomb</title>")},
		"app.js":     {Data: []byte("// app")},
		"styles.css": {Data: []byte("body{}")},
	}
	sh := stream.NewHandler(stream.Config{
		MaxConcurrentPerIP: 10,
		MaxTotal:           100,
		KeepaliveInterval:  30 * time.Second,
		Interval:           5 * time.Millisecond,
		DefaultAlerts:      countdown.DefaultAlerts,
	}, testLogger())
	return NewServer(":0", testLogger(), sh, webFS)
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}

func TestCalculateJSON(t *testing.T) {
	h := testServer().Handler()
	w := do(t, h, "POST", "/api/v1/calculate", "application/json",
		`{"distance":1,"warp_speed":5,"subwarp_speed":200,"detonation_time":5}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp calculateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}

	if resp.TargetInfo.WarpDistance != "1.00 AU (149,597,871 km)" {
		t.Errorf("warp_distance = %q", resp.TargetInfo.WarpDistance)
	}
	if resp.WarpTime.TotalTime != "18.79 seconds" {
		t.Errorf("total_time = %q", resp.WarpTime.TotalTime)
	}
	if resp.BombTiming.LaunchTime != "13.79 seconds after warp start" {
		t.Errorf("launch_time = %q", resp.BombTiming.LaunchTime)
	}
	if !scalar.EqualWithinRel(resp.Countdown.TotalTime, 18.787533971144985, 1e-9) {
		t.Errorf("countdown.total_time = %v", resp.Countdown.TotalTime)
	}
	if !scalar.EqualWithinRel(resp.Countdown.LaunchTime, 13.787533971144985, 1e-9) {
		t.Errorf("countdown.launch_time = %v", resp.Countdown.LaunchTime)
	}
	if !resp.Feasible || resp.Warning != "" {
		t.Errorf("feasible = %v, warning = %q; want feasible without warning", resp.Feasible, resp.Warning)
	}
}

func TestCalculateAcceptsStringsAndForms(t *testing.T) {
	h := testServer().Handler()

	w := do(t, h, "POST", "/api/v1/calculate", "application/json; charset=utf-8",
		`{"distance":"1","warp_speed":" 5 ","subwarp_speed":"200","detonation_time":"5.0"}`)
	if w.Code != http.StatusOK {
		t.Errorf("JSON strings: status = %d, body %s", w.Code, w.Body.String())
	}

	form := url.Values{
		"distance":        {"1"},
		"warp_speed":      {"5"},
		"subwarp_speed":   {"200"},
		"detonation_time": {"5"},
	}
	w = do(t, h, "POST", "/calculate", "application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("form alias: status = %d, body %s", w.Code, w.Body.String())
	}
	if m := decode(t, w); m["warp_time"] == nil || m["countdown"] == nil {
		t.Errorf("form response missing sections: %v", m)
	}
}

func TestCalculateErrors(t *testing.T) {
	h := testServer().Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing field",
			body:       `{"distance":1,"warp_speed":5,"subwarp_speed":200}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "please enter valid numbers in all fields",
		},
		{
			name:       "not a number",
			body:       `{"distance":"far","warp_speed":5,"subwarp_speed":200,"detonation_time":5}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "please enter valid numbers in all fields",
		},
		{
			name:       "zero value",
			body:       `{"distance":0,"warp_speed":5,"subwarp_speed":200,"detonation_time":5}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "all values must be greater than zero",
		},
		{
			name:       "negative value",
			body:       `{"distance":1,"warp_speed":5,"subwarp_speed":-200,"detonation_time":5}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "all values must be greater than zero",
		},
		{
			name:       "malformed JSON",
			body:       `{"distance":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid JSON body",
		},
		{
			name:       "degenerate model",
			body:       `{"distance":1,"warp_speed":1e-12,"subwarp_speed":200,"detonation_time":5}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "degenerate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/api/v1/calculate", "application/json", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			msg, _ := decode(t, w)["error"].(string)
			if !strings.Contains(msg, tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantError)
			}
		})
	}
}

func TestCalculateInfeasiblePlan(t *testing.T) {
	h := testServer().Handler()
	w := do(t, h, "POST", "/api/v1/calculate", "application/json",
		`{"distance":1,"warp_speed":5,"subwarp_speed":200,"detonation_time":60}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp calculateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Feasible {
		t.Error("feasible = true, want false")
	}
	if resp.Countdown.LaunchTime >= 0 {
		t.Errorf("launch_time = %v, want negative", resp.Countdown.LaunchTime)
	}
	if !strings.Contains(resp.Warning, "41.21") {
		t.Errorf("warning = %q, want the overshoot", resp.Warning)
	}
}

func TestRoutes(t *testing.T) {
	h := testServer().Handler()

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"GET", "/healthz", http.StatusOK, "ok"},
		{"GET", "/readyz", http.StatusOK, "ready"},
		{"GET", "/metrics", http.StatusOK, "tickbomb_http_requests_total"},
		{"GET", "/", http.StatusOK, "Tick Bomb"},
		{"GET", "/app.js", http.StatusOK, "// app"},
		{"GET", "/api/v1/calculate", http.StatusNotFound, ""}, // falls through to the file server
		{"DELETE", "/healthz", http.StatusMethodNotAllowed, ""},
		{"GET", "/api/v1/stream/countdown", http.StatusBadRequest, "launch_time"},
		{"GET", "/missing.txt", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, "", "")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestProbePath(t *testing.T) {
	for path, want := range map[string]bool{
		"/healthz":          true,
		"/readyz":           true,
		"/metrics":          true,
		"/api/v1/calculate": false,
	} {
		if got := probePath(path); got != want {
			t.Errorf("probePath(%q) = %v, want %v", path, got, want)
		}
	}
}
