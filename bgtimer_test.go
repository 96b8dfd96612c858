package bgtimer

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/bgtimer/internal/notify"
)

func openApp(t *testing.T, mod func(*Config)) *App {
	t.Helper()
	c, err := LoadConfig("")
	require.NoError(t, err)
	c.StorePath = filepath.Join(t.TempDir(), "timers.db")
	if mod != nil {
		mod(c)
	}
	a, err := Open(context.Background(), c, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func stopAfter(n *int) Notifier {
	return notify.Func(func(context.Context, string) (notify.Action, error) {
		*n++
		return notify.Stop, nil
	})
}

func TestRunTimerRecordsHistory(t *testing.T) {
	a := openApp(t, nil)
	calls := 0
	err := a.RunTimer(context.Background(), "20ms", "tea", TimerOptions{Notifier: stopAfter(&calls), PID: 77})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	rows, err := a.Store().ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)

	hist, err := a.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "20ms", hist[0].Duration)
	assert.Equal(t, "tea", hist[0].Message)
}

func TestRunTimerRejectsBadDuration(t *testing.T) {
	a := openApp(t, nil)
	calls := 0
	err := a.RunTimer(context.Background(), "later", "x", TimerOptions{Notifier: stopAfter(&calls)})
	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestOpenUnavailable(t *testing.T) {
	c, err := LoadConfig("")
	require.NoError(t, err)
	c.StorePath = ""
	_, err = Open(context.Background(), c, nil)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestHistorySinkReceivesEvents(t *testing.T) {
	sinkPath := filepath.Join(t.TempDir(), "events.db")
	a := openApp(t, func(c *Config) { c.History.Sink = "sqlite://" + sinkPath })

	calls := 0
	require.NoError(t, a.RunTimer(context.Background(), "10ms", "x", TimerOptions{Notifier: stopAfter(&calls)}))

	db, err := sql.Open("sqlite", sinkPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM timer_events").Scan(&n))
	assert.Equal(t, 3, n, "start, expire and stop")
}

func TestBadSinkIsNotFatal(t *testing.T) {
	a := openApp(t, func(c *Config) { c.History.Sink = "carrier://pigeon" })
	calls := 0
	require.NoError(t, a.RunTimer(context.Background(), "10ms", "x", TimerOptions{Notifier: stopAfter(&calls)}))
}

func TestPrune(t *testing.T) {
	a := openApp(t, nil)
	ctx := context.Background()
	_, err := a.Store().Insert(ctx, "1h", "alive", 100)
	require.NoError(t, err)
	deadID, err := a.Store().Insert(ctx, "1h", "dead", 200)
	require.NoError(t, err)

	gone, err := a.Prune(ctx, func(pid int) bool { return pid == 100 })
	require.NoError(t, err)
	require.Len(t, gone, 1)
	assert.Equal(t, deadID, gone[0].ID)

	rows, err := a.Store().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alive", rows[0].Message)
}

func TestRegisterMetricsGauge(t *testing.T) {
	a := openApp(t, nil)
	_, err := a.Store().Insert(context.Background(), "1h", "x", 1)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	require.NoError(t, a.RegisterMetrics(reg))
	want := `
# HELP bgtimer_registry_active_timers Timers currently present in the registry.
# TYPE bgtimer_registry_active_timers gauge
bgtimer_registry_active_timers 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "bgtimer_registry_active_timers"))
}

func TestServeMetrics(t *testing.T) {
	srv, err := ServeMetrics("127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "go_goroutines")
}

func TestHTTPServer(t *testing.T) {
	a := openApp(t, nil)
	srv, err := a.NewHTTPServer("127.0.0.1:0", "/api")
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()

	resp, err := http.Get("http://" + srv.Addr + "/api/history")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
