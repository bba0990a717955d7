// Package config loads runtime configuration from TICKBOMB_* environment
// variables and an optional config file named by TICKBOMB_CONFIG (any format
// viper reads: toml, yaml, json). Environment variables win over the file.
//
// Invalid values are logged and replaced by their defaults; only an
// unreadable config file or an unknown log level is fatal.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ieatacidme/Tickbomb/internal/countdown"
	"github.com/ieatacidme/Tickbomb/internal/stream"
)

// Keys. The environment name is TICKBOMB_ + upper-cased key with dots
// replaced by underscores (http.addr -> TICKBOMB_HTTP_ADDR).
const (
	KeyHTTPAddr          = "http.addr"
	KeyTrustProxy        = "http.trust_proxy"
	KeyLogLevel          = "log.level"
	KeyCountdownInterval = "countdown.interval_ms"
	KeyAlignAlert        = "countdown.align_alert"
	KeyBombAlert         = "countdown.bomb_alert"
	KeyStreamMaxConc     = "stream.max_concurrent"
	KeyStreamMaxTotal    = "stream.max_total"
	KeyStreamKeepalive   = "stream.keepalive_seconds"
	KeyTUILogFile        = "tui.log_file"
	KeyTUISound          = "tui.sound"
)

// Config is the full runtime configuration.
type Config struct {
	HTTPAddr   string
	TrustProxy bool
	LogLevel   slog.Level

	Interval time.Duration
	Alerts   countdown.Alerts
	Stream   stream.Config

	TUILogFile string
	TUISound   bool
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		HTTPAddr: ":8080",
		LogLevel: slog.LevelInfo,
		Interval: countdown.DefaultInterval,
		Alerts:   countdown.DefaultAlerts,
		Stream: stream.Config{
			MaxConcurrentPerIP: 10,
			MaxTotal:           1000,
			KeepaliveInterval:  30 * time.Second,
			Interval:           countdown.DefaultInterval,
		},
		TUISound: true,
	}
}

func newViper() *viper.Viper {
	d := Defaults()
	v := viper.New()
	v.SetEnvPrefix("TICKBOMB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyHTTPAddr, d.HTTPAddr)
	v.SetDefault(KeyTrustProxy, d.TrustProxy)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyCountdownInterval, d.Interval.Milliseconds())
	v.SetDefault(KeyAlignAlert, d.Alerts.Align)
	v.SetDefault(KeyBombAlert, d.Alerts.Bomb)
	v.SetDefault(KeyStreamMaxConc, d.Stream.MaxConcurrentPerIP)
	v.SetDefault(KeyStreamMaxTotal, d.Stream.MaxTotal)
	v.SetDefault(KeyStreamKeepalive, int(d.Stream.KeepaliveInterval.Seconds()))
	v.SetDefault(KeyTUILogFile, d.TUILogFile)
	v.SetDefault(KeyTUISound, d.TUISound)
	return v
}

// Flag binds a command-line flag to a config key. A flag the user set wins
// over the environment and the config file.
type Flag struct {
	Key  string
	Flag *pflag.Flag
}

// Load reads the configuration. logger receives one line per section and a
// warning for every value that fell back to its default.
func Load(logger *slog.Logger, flags ...Flag) (Config, error) {
	v := newViper()

	for _, f := range flags {
		if f.Flag == nil {
			continue
		}
		if err := v.BindPFlag(f.Key, f.Flag); err != nil {
			return Config{}, fmt.Errorf("bind flag %s: %w", f.Flag.Name, err)
		}
	}

	if path := os.Getenv("TICKBOMB_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		logger.Info("config file loaded", "path", v.ConfigFileUsed())
	}

	return fromViper(v, logger)
}

func fromViper(v *viper.Viper, logger *slog.Logger) (Config, error) {
	cfg := Defaults()

	level, err := parseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	cfg.HTTPAddr = v.GetString(KeyHTTPAddr)
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = Defaults().HTTPAddr
	}
	cfg.TrustProxy = boolValue(v, logger, KeyTrustProxy, cfg.TrustProxy)

	if ms := positiveInt(v, logger, KeyCountdownInterval, int(cfg.Interval.Milliseconds())); ms > 0 {
		cfg.Interval = time.Duration(ms) * time.Millisecond
	}
	cfg.Alerts.Align = nonNegativeFloat(v, logger, KeyAlignAlert, cfg.Alerts.Align)
	cfg.Alerts.Bomb = nonNegativeFloat(v, logger, KeyBombAlert, cfg.Alerts.Bomb)

	cfg.Stream.MaxConcurrentPerIP = positiveInt(v, logger, KeyStreamMaxConc, cfg.Stream.MaxConcurrentPerIP)
	cfg.Stream.MaxTotal = positiveInt(v, logger, KeyStreamMaxTotal, cfg.Stream.MaxTotal)
	cfg.Stream.KeepaliveInterval = time.Duration(positiveInt(v, logger, KeyStreamKeepalive, int(cfg.Stream.KeepaliveInterval.Seconds()))) * time.Second
	cfg.Stream.Interval = cfg.Interval
	cfg.Stream.DefaultAlerts = cfg.Alerts
	cfg.Stream.TrustProxy = cfg.TrustProxy

	cfg.TUILogFile = v.GetString(KeyTUILogFile)
	cfg.TUISound = boolValue(v, logger, KeyTUISound, cfg.TUISound)

	logger.Info("http config",
		"addr", cfg.HTTPAddr,
		"trust_proxy", cfg.TrustProxy,
		"log_level", cfg.LogLevel.String(),
	)
	logger.Info("countdown config",
		"interval_ms", cfg.Interval.Milliseconds(),
		"align_alert_seconds", cfg.Alerts.Align,
		"bomb_alert_seconds", cfg.Alerts.Bomb,
	)
	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.Stream.MaxConcurrentPerIP,
		"max_total", cfg.Stream.MaxTotal,
		"keepalive_interval_seconds", cfg.Stream.KeepaliveInterval.Seconds(),
	)

	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyLogLevel, s, err)
	}
	return level, nil
}

func envName(key string) string {
	return "TICKBOMB_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func positiveInt(v *viper.Viper, logger *slog.Logger, key string, def int) int {
	raw := v.GetString(key)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		logger.Warn("invalid "+envName(key)+" value, using default", "value", raw, "default", def)
		return def
	}
	return n
}

func nonNegativeFloat(v *viper.Viper, logger *slog.Logger, key string, def float64) float64 {
	raw := v.GetString(key)
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < 0 {
		logger.Warn("invalid "+envName(key)+" value, using default", "value", raw, "default", def)
		return def
	}
	return f
}

func boolValue(v *viper.Viper, logger *slog.Logger, key string, def bool) bool {
	raw := v.GetString(key)
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn("invalid "+envName(key)+" value, using default", "value", raw, "default", def)
		return def
	}
	return b
}
