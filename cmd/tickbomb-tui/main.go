// Command tickbomb-tui runs the calculator and countdown in the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/pflag"

	"github.com/ieatacidme/Tickbomb/internal/config"
	"github.com/ieatacidme/Tickbomb/internal/tui"
)

func main() {
	fs := pflag.NewFlagSet("tickbomb-tui", pflag.ExitOnError)
	fs.Bool("sound", true, "play audible alerts")
	fs.String("log-file", "", "write JSON logs to this file (default: no logging)")
	_ = fs.Parse(os.Args[1:])

	// The terminal belongs to tcell, so configuration problems are reported
	// on stderr before the screen is taken over.
	bootLogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.Load(bootLogger,
		config.Flag{Key: config.KeyTUISound, Flag: fs.Lookup("sound")},
		config.Flag{Key: config.KeyTUILogFile, Flag: fs.Lookup("log-file")},
	)
	if err != nil {
		bootLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.DiscardHandler)
	if cfg.TUILogFile != "" {
		f, err := os.OpenFile(cfg.TUILogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			bootLogger.Error("failed to open log file", "path", cfg.TUILogFile, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}

	if err := run(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, "tickbomb-tui:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	var sound tui.Sounder = tui.Silent{}
	if cfg.TUISound {
		s, err := tui.NewSpeaker()
		if err != nil {
			logger.Warn("audio unavailable, alerts are visual only", "error", err)
		} else {
			sound = s
		}
	}
	defer sound.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := tui.New(screen, tui.Options{
		Interval: cfg.Interval,
		Alerts:   cfg.Alerts,
		Sound:    sound,
		Logger:   logger,
	})

	logger.Info("tui started", "interval", cfg.Interval.String(), "sound", cfg.TUISound)
	err = app.Run(ctx)
	logger.Info("tui stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
