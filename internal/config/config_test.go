package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "bgtimer.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.TempDir(), "bgtimer.db"), c.StorePath)
	assert.Equal(t, "", c.Snooze)
	assert.Equal(t, "auto", c.Notifier)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, time.Second, c.Monitor.Interval)
	assert.Equal(t, 2*time.Second, c.Monitor.Pause)
	assert.Equal(t, "127.0.0.1:8787", c.Server.Listen)
	assert.Equal(t, "/api", c.Server.BasePath)
	assert.Empty(t, c.History.Sink)
}

func TestLoadFile(t *testing.T) {
	p := writeTOML(t, `
store_path = "/var/tmp/timers.db"
snooze = "10m"
notifier = "Console"

[log]
dir = "/var/log/bgtimer"
level = "debug"
max_size_mb = 5
compress = true

[monitor]
interval = "500ms"
pause = "1s"

[metrics]
listen = ":9090"

[history]
sink = "sqlite:///tmp/history.db"

[server]
listen = ":8080"
base_path = "/v1"
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/timers.db", c.StorePath)
	assert.Equal(t, "10m", c.Snooze)
	assert.Equal(t, "console", c.Notifier)
	assert.Equal(t, "/var/log/bgtimer", c.Log.Dir)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 5, c.Log.MaxSizeMB)
	assert.True(t, c.Log.Compress)
	assert.Equal(t, 500*time.Millisecond, c.Monitor.Interval)
	assert.Equal(t, time.Second, c.Monitor.Pause)
	assert.Equal(t, ":9090", c.Metrics.Listen)
	assert.Equal(t, "sqlite:///tmp/history.db", c.History.Sink)
	assert.Equal(t, ":8080", c.Server.Listen)
	assert.Equal(t, "/v1", c.Server.BasePath)
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeTOML(t, "snooze = \"10m\"\n[log]\nlevel = \"warn\"\n")
	t.Setenv("BGTIMER_SNOOZE", " 30s ")
	t.Setenv("BGTIMER_LOG_LEVEL", "error")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "30s", c.Snooze)
	assert.Equal(t, "error", c.Log.Level)
}

func TestUnknownNotifierFallsBack(t *testing.T) {
	t.Setenv("BGTIMER_NOTIFIER", "carrier-pigeon")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "auto", c.Notifier)
}

func TestBadMonitorDurationsFallBack(t *testing.T) {
	t.Setenv("BGTIMER_MONITOR_INTERVAL", "soon")
	t.Setenv("BGTIMER_MONITOR_PAUSE", "later")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMonitorInterval, c.Monitor.Interval)
	assert.Equal(t, DefaultMonitorPause, c.Monitor.Pause)
}

func TestBadMonitorIntervalInFile(t *testing.T) {
	p := writeTOML(t, "[monitor]\ninterval = \"nope\"\npause = \"3s\"\n")
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, DefaultMonitorInterval, c.Monitor.Interval)
	assert.Equal(t, 3*time.Second, c.Monitor.Pause)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
