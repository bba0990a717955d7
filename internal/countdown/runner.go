package countdown

import (
	"context"
	"fmt"
	"time"
)

// Command is a control request delivered to a Runner.
type Command string

const (
	CmdStart Command = "start"
	CmdStop  Command = "stop"
	CmdReset Command = "reset"
)

// ParseCommand maps a wire string onto a Command.
func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case CmdStart, CmdStop, CmdReset:
		return c, nil
	default:
		return "", fmt.Errorf("unknown countdown command %q", s)
	}
}

// DefaultInterval is how often a running countdown is refreshed.
const DefaultInterval = 50 * time.Millisecond

// Runner owns a Countdown and drives it from a single goroutine. Commands
// from other goroutines reach it over a channel, so the countdown itself is
// never shared.
type Runner struct {
	cd       *Countdown
	interval time.Duration
	now      func() time.Time
	cmds     chan Command
}

// NewRunner creates a runner. A zero interval uses DefaultInterval and a nil
// clock uses time.Now.
func NewRunner(cd *Countdown, interval time.Duration, now func() time.Time) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Runner{
		cd:       cd,
		interval: interval,
		now:      now,
		cmds:     make(chan Command, 8),
	}
}

// Send queues a command for the running loop.
func (r *Runner) Send(ctx context.Context, cmd Command) error {
	select {
	case r.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the countdown until ctx is cancelled or emit fails. Every
// command produces a state event (or an error event when it is rejected) and
// every tick while running produces the events returned by Countdown.Tick.
// When stopOnLanding is set, Run returns nil once the countdown lands.
func (r *Runner) Run(ctx context.Context, stopOnLanding bool, emit func(Event) error) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-r.cmds:
			if err := emit(r.apply(cmd)); err != nil {
				return err
			}

		case <-ticker.C:
			for _, ev := range r.cd.Tick(r.now()) {
				if err := emit(ev); err != nil {
					return err
				}
				if ev.Kind == KindLanding && stopOnLanding {
					return nil
				}
			}
		}
	}
}

func (r *Runner) apply(cmd Command) Event {
	switch cmd {
	case CmdStart:
		if err := r.cd.Start(r.now()); err != nil {
			ev := r.cd.Snapshot()
			ev.Kind = KindError
			ev.Message = err.Error()
			return ev
		}
	case CmdStop:
		r.cd.Stop(r.now())
	case CmdReset:
		r.cd.Reset()
	}
	return r.cd.Snapshot()
}
