// Package tui is the terminal front-end: a six-field form, the three result
// sections and a launch countdown with visual and audible alerts.
//
// Keys: Tab/Down and Shift+Tab/Up move between fields, Enter calculates,
// Ctrl+S starts or resumes the countdown, Ctrl+X stops it, Ctrl+R resets it,
// Esc or Ctrl+C quits.
//
// The event loop goroutine owns the form and the countdown; terminal events
// reach it over a channel.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
	"github.com/ieatacidme/Tickbomb/internal/report"
	"github.com/ieatacidme/Tickbomb/internal/warp"
)

// Options configures an App.
type Options struct {
	Interval time.Duration    // countdown refresh, default countdown.DefaultInterval
	Alerts   countdown.Alerts // initial alert thresholds shown in the form
	Sound    Sounder          // nil means Silent
	Logger   *slog.Logger
	Now      func() time.Time // nil means time.Now
}

// App is the terminal calculator.
type App struct {
	screen tcell.Screen
	opts   Options
	logger *slog.Logger

	fields []*field
	focus  int

	sections []report.Section
	errMsg   string

	cd     *countdown.Countdown
	last   countdown.Event
	status string
	alert  countdown.Kind
}

// New creates an App drawing on an initialised screen.
func New(screen tcell.Screen, opts Options) *App {
	if opts.Interval <= 0 {
		opts.Interval = countdown.DefaultInterval
	}
	if opts.Sound == nil {
		opts.Sound = Silent{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	fields := defaultFields()
	if opts.Alerts != (countdown.Alerts{}) {
		fields[fieldAlignAlert] = newField(fields[fieldAlignAlert].label, report.Plain(opts.Alerts.Align))
		fields[fieldBombAlert] = newField(fields[fieldBombAlert].label, report.Plain(opts.Alerts.Bomb))
	}

	return &App{
		screen: screen,
		opts:   opts,
		logger: opts.Logger,
		fields: fields,
		status: "Enter values and press Enter to calculate",
	}
}

// Run draws and handles input until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.opts.Interval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				// Screen finalised.
				return
			}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-eventChan:
			if !a.handleEvent(ev) {
				return nil
			}
			a.draw()

		case <-ticker.C:
			if a.tick() {
				a.draw()
			}
		}
	}
}

// handleEvent returns false when the app should exit.
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) handleKey(key tcell.Key, r rune) bool {
	f := a.fields[a.focus]

	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyTab, tcell.KeyDown:
		a.focus = (a.focus + 1) % numFields
	case tcell.KeyBacktab, tcell.KeyUp:
		a.focus = (a.focus + numFields - 1) % numFields
	case tcell.KeyEnter:
		a.calculate()
	case tcell.KeyCtrlS:
		a.start()
	case tcell.KeyCtrlX:
		a.stop()
	case tcell.KeyCtrlR:
		a.reset()
	case tcell.KeyCtrlU:
		f.clear()
	case tcell.KeyLeft:
		f.left()
	case tcell.KeyRight:
		f.right()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		f.backspace()
	case tcell.KeyDelete:
		f.delete()
	case tcell.KeyRune:
		f.insert(r)
	}
	return true
}

// calculate reads the form and replaces the results and the countdown.
func (a *App) calculate() {
	in, alerts, err := readForm(a.fields)
	if err == nil {
		var res warp.Result
		res, err = warp.Calculate(in)
		if err == nil {
			rep := report.Build(res)
			a.sections = rep.Sections()
			a.errMsg = ""
			a.cd = countdown.New(res.Plan.LaunchTime, res.Breakdown.TotalTime, alerts)
			a.last = a.cd.Snapshot()
			a.alert = ""
			if res.Plan.Feasible() {
				a.status = "Ready: press Ctrl+S to start the countdown"
			} else {
				a.status = "Launch time is negative, countdown unavailable"
			}
			a.logger.Info("calculated",
				"distance_au", in.DistanceAU,
				"total_time", res.Breakdown.TotalTime,
				"launch_time", res.Plan.LaunchTime,
			)
			return
		}
	}

	a.sections = nil
	a.cd = nil
	a.last = countdown.Event{}
	a.errMsg = errorText(err)
	a.status = ""
	a.logger.Warn("calculation rejected", "error", err)
}

// errorText maps an error onto the message shown under the form.
func errorText(err error) string {
	switch {
	case errors.Is(err, warp.ErrNotNumeric):
		return "Please enter valid numbers in all fields"
	case errors.Is(err, warp.ErrInvalidInput):
		return "All values must be greater than zero"
	default:
		return "Error: " + err.Error()
	}
}

func (a *App) start() {
	if a.cd == nil {
		a.status = "Calculate first"
		return
	}
	if err := a.cd.Start(a.opts.Now()); err != nil {
		if errors.Is(err, countdown.ErrRunning) {
			return
		}
		a.status = "Cannot start: " + err.Error()
		return
	}
	a.last = a.cd.Snapshot()
	a.status = "Counting down..."
	a.alert = ""
}

func (a *App) stop() {
	if a.cd == nil || !a.cd.Stop(a.opts.Now()) {
		return
	}
	a.last = a.cd.Snapshot()
	a.status = "Paused: press Ctrl+S to resume"
}

func (a *App) reset() {
	if a.cd == nil {
		return
	}
	a.cd.Reset()
	a.last = a.cd.Snapshot()
	a.alert = ""
	a.status = "Ready: press Ctrl+S to start the countdown"
}

// tick advances a running countdown and reports whether anything changed.
func (a *App) tick() bool {
	if a.cd == nil || a.cd.State() != countdown.Running {
		return false
	}
	for _, ev := range a.cd.Tick(a.opts.Now()) {
		a.last = ev
		switch ev.Kind {
		case countdown.KindAlign, countdown.KindLaunch, countdown.KindLanding:
			a.alert = ev.Kind
			a.status = ev.Message
			a.opts.Sound.Play(ev.Kind)
			a.logger.Info("countdown alert", "kind", string(ev.Kind), "remaining", ev.Remaining)
		}
	}
	return true
}
