// Package config loads bgtimer settings from an optional TOML file and
// BGTIMER_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. BGTIMER_SNOOZE
// or BGTIMER_LOG_DIR.
const EnvPrefix = "BGTIMER"

// Defaults applied when neither file nor environment set a key.
const (
	DefaultMonitorInterval = time.Second
	DefaultMonitorPause    = 2 * time.Second
	DefaultServerListen    = "127.0.0.1:8787"
	DefaultServerBasePath  = "/api"
	DefaultNotifier        = "auto"
	DefaultLogLevel        = "info"
)

// Config is the merged result of defaults, the optional file and BGTIMER_*
// environment variables.
type Config struct {
	StorePath string        `mapstructure:"store_path"`
	Snooze    string        `mapstructure:"snooze"`
	Notifier  string        `mapstructure:"notifier"`
	Log       LogConfig     `mapstructure:"log"`
	Monitor   MonitorConfig `mapstructure:"monitor"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
	History   HistoryConfig `mapstructure:"history"`
	Server    ServerConfig  `mapstructure:"server"`
}

// LogConfig controls the rotating log file written by detached timers.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MonitorConfig sets the live view refresh interval and the pause after a
// command result is shown.
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Pause    time.Duration `mapstructure:"pause"`
}

// MetricsConfig enables the Prometheus endpoint of the monitor when Listen is set.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// HistoryConfig names an optional external sink that mirrors lifecycle events.
type HistoryConfig struct {
	Sink string `mapstructure:"sink"`
}

// ServerConfig holds the serve command defaults.
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store_path", filepath.Join(os.TempDir(), "bgtimer.db"))
	v.SetDefault("snooze", "")
	v.SetDefault("notifier", DefaultNotifier)
	v.SetDefault("log.dir", filepath.Join(os.TempDir(), "bgtimer-logs"))
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.max_size_mb", 0)
	v.SetDefault("log.max_backups", 0)
	v.SetDefault("log.max_age_days", 0)
	v.SetDefault("log.compress", false)
	v.SetDefault("monitor.interval", DefaultMonitorInterval)
	v.SetDefault("monitor.pause", DefaultMonitorPause)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("history.sink", "")
	v.SetDefault("server.listen", DefaultServerListen)
	v.SetDefault("server.base_path", DefaultServerBasePath)
	return v
}

// Load reads path (if non-empty) and overlays environment variables.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	durationOrDefault(v, "monitor.interval", DefaultMonitorInterval)
	durationOrDefault(v, "monitor.pause", DefaultMonitorPause)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.normalize()
	return &c, nil
}

// durationOrDefault replaces an unparseable duration under key with def, so a
// typo in the monitor settings does not stop every command from loading.
func durationOrDefault(v *viper.Viper, key string, def time.Duration) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		d = def
	}
	v.Set(key, d)
}

func (c *Config) normalize() {
	c.StorePath = strings.TrimSpace(c.StorePath)
	c.Snooze = strings.TrimSpace(c.Snooze)
	c.Notifier = strings.ToLower(strings.TrimSpace(c.Notifier))
	switch c.Notifier {
	case "auto", "console", "dialog":
	default:
		c.Notifier = DefaultNotifier
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = DefaultMonitorInterval
	}
	if c.Monitor.Pause < 0 {
		c.Monitor.Pause = DefaultMonitorPause
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultServerListen
	}
}
