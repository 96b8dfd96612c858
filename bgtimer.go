// Package bgtimer wires the registry, lifecycle engine, monitor and HTTP API
// together for the bgtimer command and for embedding.
package bgtimer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/bgtimer/internal/config"
	"github.com/loykin/bgtimer/internal/history"
	"github.com/loykin/bgtimer/internal/history/factory"
	"github.com/loykin/bgtimer/internal/lifecycle"
	"github.com/loykin/bgtimer/internal/metrics"
	"github.com/loykin/bgtimer/internal/monitor"
	"github.com/loykin/bgtimer/internal/notify"
	"github.com/loykin/bgtimer/internal/registry"
	iapi "github.com/loykin/bgtimer/internal/server"
	"github.com/loykin/bgtimer/internal/terminate"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type Timer = registry.Timer

type HistoryEntry = registry.HistoryEntry

type Frame = monitor.Frame

type Action = notify.Action

type Notifier = notify.Notifier

type HistorySink = history.Sink

var (
	ErrStoreUnavailable = registry.ErrStoreUnavailable
	ErrNotFound         = registry.ErrNotFound
)

// LoadConfig reads the optional TOML file at path and BGTIMER_* overrides.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// App is an opened registry plus the settings every command shares.
type App struct {
	cfg   *Config
	store *registry.Store
	sink  history.Sink
	log   *slog.Logger
}

// Open opens the registry named by c. A history sink that cannot be reached
// is logged and skipped; only the registry is required.
func Open(ctx context.Context, c *Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store, err := registry.Open(ctx, c.StorePath)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: c, store: store, sink: history.Nop{}, log: log}
	if c.History.Sink != "" {
		sink, err := factory.NewSinkFromDSN(c.History.Sink)
		if err != nil {
			log.Warn("history sink disabled", "error", err)
		} else {
			a.sink = sink
		}
	}
	return a, nil
}

// Close closes the history sink, if it has one, and the registry.
func (a *App) Close() error {
	var errs []error
	if c, ok := a.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

func (a *App) Config() *Config { return a.cfg }

func (a *App) Store() *registry.Store { return a.store }

// TimerOptions tune RunTimer for the calling process.
type TimerOptions struct {
	Foreground bool
	Notifier   Notifier
	Out        io.Writer
	PID        int
}

// RunTimer runs one timer to completion in the calling process.
func (a *App) RunTimer(ctx context.Context, spec, message string, o TimerOptions) error {
	e := lifecycle.New(lifecycle.Options{
		Store:      a.store,
		Notifier:   o.Notifier,
		PID:        o.PID,
		Snooze:     a.cfg.Snooze,
		Foreground: o.Foreground,
		Out:        o.Out,
		Sink:       a.sink,
		Logger:     a.log,
	})
	return e.Run(ctx, spec, message)
}

// Monitor builds a live monitor over the registry. in may be nil for a
// display-only monitor.
func (a *App) Monitor(in io.Reader, out io.Writer, clear bool, term terminate.Terminator) *monitor.Monitor {
	return monitor.New(monitor.Options{
		Store:      a.store,
		Terminator: term,
		In:         in,
		Out:        out,
		Interval:   a.cfg.Monitor.Interval,
		Pause:      a.cfg.Monitor.Pause,
		Clear:      clear,
		Logger:     a.log,
	})
}

// History returns the newest n entries; n <= 0 means the default of 20.
func (a *App) History(ctx context.Context, n int) ([]HistoryEntry, error) {
	return a.store.ListHistory(ctx, n)
}

// Prune removes records whose owning process no longer exists and returns
// the removed records.
func (a *App) Prune(ctx context.Context, alive func(pid int) bool) ([]Timer, error) {
	if alive == nil {
		alive = terminate.Alive
	}
	rows, err := a.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var gone []Timer
	for _, t := range rows {
		if alive(t.PID) {
			continue
		}
		if err := a.store.Remove(ctx, t.ID); err != nil {
			return gone, err
		}
		a.log.Info("pruned orphaned timer", "id", t.ID, "pid", t.PID)
		gone = append(gone, t)
	}
	return gone, nil
}

// RegisterMetrics registers the collectors and a gauge of registry rows.
func (a *App) RegisterMetrics(r prometheus.Registerer) error {
	if err := metrics.Register(r); err != nil {
		return err
	}
	return metrics.RegisterActiveGauge(r, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := a.store.CountActive(ctx)
		if err != nil {
			return 0
		}
		return float64(n)
	})
}

// NewHTTPServer starts the HTTP API on addr using the default terminator.
func (a *App) NewHTTPServer(addr, basePath string) (*http.Server, error) {
	r := iapi.NewRouter(a.Monitor(nil, nil, false, nil), a.store, basePath)
	return iapi.NewServer(addr, r)
}

// ServeMetrics starts a background HTTP server on addr exposing /metrics
// using the default registry.
func ServeMetrics(addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	return srv, nil
}
