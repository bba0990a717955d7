// Package countdown runs the launch countdown shown by the front-ends.
//
// A Countdown is a plain state machine with three states: Idle, Running and
// Paused. It never reads the clock itself. Callers pass the current time to
// every method, which keeps it deterministic under test. It is not safe for
// concurrent use; a single goroutine owns it (see Runner).
//
// The countdown runs towards the launch moment, measured from warp start.
// Remaining time is recomputed on every tick as
//
//	remaining = max(0, launchTime - (now - warpStart))
//
// Stopping a running countdown pauses it. Starting a paused countdown resumes
// from the stored remaining time by moving warpStart forward, so the plan's
// launch time is never modified.
package countdown

import (
	"errors"
	"fmt"
	"time"
)

// State of a countdown.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Kind identifies an event.
type Kind string

const (
	KindTick    Kind = "tick"
	KindAlign   Kind = "align"
	KindLaunch  Kind = "launch"
	KindLanding Kind = "landing"
	KindState   Kind = "state"
	KindError   Kind = "error"
)

// Alert messages.
const (
	MsgAlign   = "ALIGN NOW!"
	MsgLaunch  = "LAUNCH BOMB!"
	MsgLanding = "TARGET LANDING!"
)

var (
	// ErrInfeasible is returned when starting a plan whose launch time is
	// negative.
	ErrInfeasible = errors.New("launch time is before warp start, countdown cannot run")

	// ErrRunning is returned when starting a countdown that is already running.
	ErrRunning = errors.New("countdown already running")
)

// Alerts are thresholds in seconds before launch. Each fires once per run.
type Alerts struct {
	Align float64 `json:"align_alert"`
	Bomb  float64 `json:"bomb_alert"`
}

// DefaultAlerts match the form defaults.
var DefaultAlerts = Alerts{Align: 3, Bomb: 1}

// Event is emitted by Tick and by the Runner.
type Event struct {
	Kind      Kind    `json:"type"`
	State     string  `json:"state"`
	Remaining float64 `json:"remaining"` // seconds until launch
	Elapsed   float64 `json:"elapsed"`   // seconds since warp start
	Progress  float64 `json:"progress"`  // fraction of the whole warp, 0..1
	Display   string  `json:"display"`   // HH:MM:SS
	Message   string  `json:"message,omitempty"`
}

// Countdown tracks one run towards a launch time.
type Countdown struct {
	launch float64
	total  float64
	alerts Alerts

	state     State
	remaining float64
	elapsed   float64
	warpStart time.Time

	alignFired bool
	bombFired  bool
}

// New creates an idle countdown for a plan. launchTime and totalTime are
// seconds from warp start.
func New(launchTime, totalTime float64, alerts Alerts) *Countdown {
	return &Countdown{
		launch:    launchTime,
		total:     totalTime,
		alerts:    alerts,
		remaining: launchTime,
	}
}

// State returns the current state.
func (c *Countdown) State() State { return c.state }

// Remaining returns the seconds left until launch as of the last update.
func (c *Countdown) Remaining() float64 { return c.remaining }

// LaunchTime returns the plan's launch time.
func (c *Countdown) LaunchTime() float64 { return c.launch }

// TotalTime returns the plan's total warp time.
func (c *Countdown) TotalTime() float64 { return c.total }

// Start begins a run from Idle or resumes one from Paused.
func (c *Countdown) Start(now time.Time) error {
	switch c.state {
	case Running:
		return ErrRunning
	case Idle:
		if c.launch < 0 {
			return fmt.Errorf("launch at %.2f s: %w", c.launch, ErrInfeasible)
		}
		c.remaining = c.launch
		c.elapsed = 0
		c.alignFired = false
		c.bombFired = false
	}

	// Place warp start so that launch - (now - warpStart) == remaining.
	c.warpStart = now.Add(-seconds(c.launch - c.remaining))
	c.state = Running
	return nil
}

// Stop pauses a running countdown and keeps its remaining time. It reports
// whether the countdown was running.
func (c *Countdown) Stop(now time.Time) bool {
	if c.state != Running {
		return false
	}
	c.update(now)
	c.state = Paused
	return true
}

// Reset returns the countdown to Idle with the full launch time remaining.
func (c *Countdown) Reset() {
	c.state = Idle
	c.remaining = c.launch
	c.elapsed = 0
	c.alignFired = false
	c.bombFired = false
}

// Tick advances a running countdown to now and returns what happened: one
// tick event, any alerts crossed since the last tick, and a landing event
// when the launch moment is reached. The countdown is Idle after landing.
func (c *Countdown) Tick(now time.Time) []Event {
	if c.state != Running {
		return nil
	}
	c.update(now)

	events := []Event{c.event(KindTick, "")}

	if !c.alignFired && c.remaining <= c.alerts.Align {
		c.alignFired = true
		events = append(events, c.event(KindAlign, MsgAlign))
	}
	if !c.bombFired && c.remaining <= c.alerts.Bomb {
		c.bombFired = true
		events = append(events, c.event(KindLaunch, MsgLaunch))
	}

	if c.remaining <= 0 {
		c.state = Idle
		events = append(events, c.event(KindLanding, MsgLanding))
	}

	return events
}

// Snapshot describes the countdown without advancing it.
func (c *Countdown) Snapshot() Event {
	return c.event(KindState, "")
}

// Progress returns elapsed warp time as a fraction of the total, capped at 1.
func (c *Countdown) Progress() float64 {
	if c.total <= 0 {
		return 0
	}
	return min(c.elapsed, c.total) / c.total
}

func (c *Countdown) update(now time.Time) {
	c.elapsed = now.Sub(c.warpStart).Seconds()
	c.remaining = max(0, c.launch-c.elapsed)
}

func (c *Countdown) event(kind Kind, msg string) Event {
	return Event{
		Kind:      kind,
		State:     c.state.String(),
		Remaining: c.remaining,
		Elapsed:   c.elapsed,
		Progress:  c.Progress(),
		Display:   FormatClock(c.remaining),
		Message:   msg,
	}
}

// FormatClock renders seconds as HH:MM:SS, truncating fractions.
// Negative values render as 00:00:00.
func FormatClock(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	total := int64(secs)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
