package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/bgtimer"
	"github.com/loykin/bgtimer/internal/dialog"
	"github.com/loykin/bgtimer/internal/duration"
	"github.com/loykin/bgtimer/internal/logger"
	"github.com/loykin/bgtimer/internal/monitor"
	"github.com/loykin/bgtimer/internal/notify"
	"github.com/loykin/bgtimer/internal/spawn"
	"github.com/loykin/bgtimer/internal/terminate"
)

const shutdownTimeout = 5 * time.Second

// Start validates spec and either runs the timer here (--fg) or hands it to a
// detached child. An invalid duration is reported before anything is spawned.
func (c *command) Start(ctx context.Context, flags GlobalFlags, tf TimerFlags, spec, message string) error {
	d, err := duration.Parse(spec)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Starting timer for %d seconds...\n", int64(d/time.Second))

	if !tf.Foreground {
		exe, err := c.exe()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		pid, err := c.detach(exe, spawn.Args(spawn.Request{
			Duration:   spec,
			Message:    message,
			ConfigPath: flags.ConfigPath,
		}))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.out, "Timer running in background (pid %d).\n", pid)
		return nil
	}

	conf, err := bgtimer.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	app, err := c.openWith(ctx, conf, consoleLogger(c.errOut, conf.Log.Level))
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	exe, _ := c.exe()
	n := notify.Select(conf.Notifier, notify.Env{
		In:       c.in,
		Out:      c.out,
		Terminal: isTTY(c.in) && isTTY(c.out),
		Exe:      exe,
	}, notify.HasDisplay())
	return app.RunTimer(ctxOr(ctx), spec, message, bgtimer.TimerOptions{
		Foreground: true,
		Notifier:   n,
		Out:        c.out,
		PID:        c.pid,
	})
}

// RunDetached is what a background child executes. It has no terminal, so it
// logs to the shared rotating file; under "auto" it asks through the dialog helper.
func (c *command) RunDetached(ctx context.Context, flags GlobalFlags, spec, message string) error {
	conf, err := bgtimer.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	log, closer := logger.NewFile(logger.Config{
		Dir:        conf.Log.Dir,
		Level:      conf.Log.Level,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
		MaxAgeDays: conf.Log.MaxAgeDays,
		Compress:   conf.Log.Compress,
	})
	defer func() { _ = closer.Close() }()

	app, err := c.openWith(ctx, conf, log)
	if err != nil {
		log.Error("timer not started", "error", err)
		return err
	}
	defer func() { _ = app.Close() }()

	exe, _ := c.exe()
	n := notify.Select(conf.Notifier, notify.Env{In: c.in, Out: io.Discard, Exe: exe}, notify.HasDisplay())
	if err := app.RunTimer(ctxOr(ctx), spec, message, bgtimer.TimerOptions{
		Notifier: n,
		Out:      io.Discard,
		PID:      c.pid,
	}); err != nil {
		log.Error("timer failed", "error", err)
		return err
	}
	return nil
}

func (c *command) List(ctx context.Context, flags GlobalFlags, of OutputFlags) error {
	format, err := normalizeOutput(of.Output)
	if err != nil {
		return err
	}
	if of.APIUrl != "" {
		return c.listRemote(ctxOr(ctx), of, format)
	}
	app, err := c.open(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	frame, err := app.Monitor(nil, c.out, false, nil).Snapshot(ctxOr(ctx))
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return printJSON(c.out, frame)
	case "yaml":
		return printYAML(c.out, frame)
	}
	monitor.Render(c.out, frame)
	return nil
}

// Monitor runs the live view until interrupted. Ctrl+C keeps its default
// meaning of terminating the monitor process.
func (c *command) Monitor(ctx context.Context, flags GlobalFlags, mf MonitorFlags) error {
	conf, err := bgtimer.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	app, err := c.openWith(ctx, conf, consoleLogger(c.errOut, conf.Log.Level))
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	listen := mf.MetricsListen
	if listen == "" {
		listen = conf.Metrics.Listen
	}
	if listen != "" {
		if err := app.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return err
		}
		srv, err := bgtimer.ServeMetrics(listen)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }()
	}

	return app.Monitor(c.in, c.out, isTTY(c.out), terminate.Signal{}).Run(ctxOr(ctx))
}

// Kill terminates one timer by id, or every listed timer for "all".
func (c *command) Kill(ctx context.Context, flags GlobalFlags, kf KillFlags, target string) error {
	ctx = ctxOr(ctx)
	if kf.APIUrl != "" {
		return c.killRemote(ctx, kf, target)
	}
	app, err := c.open(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	mon := app.Monitor(nil, c.out, false, terminate.Signal{})
	frame, err := mon.Snapshot(ctx)
	if err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(target), "all") {
		n, err := mon.KillAll(ctx, frame)
		if err != nil {
			return fmt.Errorf("killed %d timer(s), then: %w", n, err)
		}
		_, _ = fmt.Fprintf(c.out, "Killed %d timer(s).\n", n)
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timer id %q", target)
	}
	if err := mon.Kill(ctx, id, frame); err != nil {
		if errors.Is(err, bgtimer.ErrNotFound) {
			return fmt.Errorf("timer %d not found", id)
		}
		return err
	}
	t, _ := frame.Lookup(id)
	_, _ = fmt.Fprintf(c.out, "Killed timer %d (pid %d).\n", id, t.PID)
	return nil
}

func (c *command) History(flags GlobalFlags, of OutputFlags, n int) error {
	format, err := normalizeOutput(of.Output)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if of.APIUrl != "" {
		return c.historyRemote(ctx, of, format, n)
	}
	app, err := c.open(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	entries, err := app.History(ctx, n)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return printJSON(c.out, entries)
	case "yaml":
		return printYAML(c.out, entries)
	}
	printHistory(c.out, entries)
	return nil
}

func (c *command) Prune(ctx context.Context, flags GlobalFlags) error {
	app, err := c.open(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	gone, err := app.Prune(ctxOr(ctx), nil)
	if err != nil {
		return err
	}
	for _, t := range gone {
		_, _ = fmt.Fprintf(c.out, "Removed timer %d (pid %d gone).\n", t.ID, t.PID)
	}
	_, _ = fmt.Fprintf(c.out, "Pruned %d timer(s).\n", len(gone))
	return nil
}

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (c *command) Serve(ctx context.Context, flags GlobalFlags, sf ServeFlags) error {
	conf, err := bgtimer.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	app, err := c.openWith(ctx, conf, consoleLogger(c.errOut, conf.Log.Level))
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	listen := firstNonEmpty(sf.Listen, conf.Server.Listen)
	base := firstNonEmpty(sf.BasePath, conf.Server.BasePath)
	if err := app.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	srv, err := app.NewHTTPServer(listen, base)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Serving timers API on http://%s%s\n", srv.Addr, base)

	ctx, stop := signal.NotifyContext(ctxOr(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dialog shows the graphical prompt and prints the chosen action for the
// timer process that spawned us.
func (c *command) Dialog(df DialogFlags) error {
	_, err := fmt.Fprintln(c.out, c.ask(df.Message))
	return err
}

func askDialog(message string) string {
	return string(dialog.Ask(message))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
