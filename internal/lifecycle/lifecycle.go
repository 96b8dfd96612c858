// Package lifecycle drives a single timer from creation to stop. It runs
// inside the timer's own process and is the only writer of that timer's
// registry rows.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/bgtimer/internal/duration"
	"github.com/loykin/bgtimer/internal/history"
	"github.com/loykin/bgtimer/internal/metrics"
	"github.com/loykin/bgtimer/internal/notify"
	"github.com/loykin/bgtimer/internal/registry"
)

// State of a timer.
type State string

const (
	StateRunning State = "running"
	StateExpired State = "expired"
	StateStopped State = "stopped"
)

const (
	// DefaultSnooze replaces a missing or invalid snooze setting.
	DefaultSnooze = "5m"

	SnoozedPrefix   = "(Snoozed) "
	RestartedPrefix = "(Restarted) "

	sinkTimeout = 5 * time.Second
)

// Store is the part of the registry the engine writes to.
type Store interface {
	Insert(ctx context.Context, duration, message string, pid int) (int64, error)
	Remove(ctx context.Context, id int64) error
	AppendHistory(ctx context.Context, e registry.HistoryEntry) error
}

// Options configures an Engine. Store and Notifier are required.
type Options struct {
	Store      Store
	Notifier   notify.Notifier
	PID        int
	Snooze     string // configured snooze span; see ResolveSnooze
	Foreground bool   // print a live countdown to Out while waiting
	Out        io.Writer
	Sink       history.Sink
	Logger     *slog.Logger

	// test hooks
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine runs one timer. It is not safe for concurrent use.
type Engine struct {
	opts   Options
	series string
	log    *slog.Logger

	state   State
	id      int64
	started time.Time
}

// New returns an Engine for one timer, filling in defaults for the optional
// fields of opts.
func New(opts Options) *Engine {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Sink == nil {
		opts.Sink = history.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	series := uuid.NewString()
	return &Engine{
		opts:   opts,
		series: series,
		log:    opts.Logger.With("series", series, "pid", opts.PID),
	}
}

// Series identifies this invocation across the record ids it goes through.
func (e *Engine) Series() string { return e.series }

// State reports the current state; it is StateStopped once Run returns nil.
func (e *Engine) State() State { return e.state }

// ResolveSnooze returns the span to register for a snooze and its length.
// Anything that does not parse to a positive duration yields DefaultSnooze.
func ResolveSnooze(spec string) (string, time.Duration) {
	if d, err := duration.Parse(spec); err == nil && d > 0 {
		return spec, d
	}
	d, _ := duration.Parse(DefaultSnooze)
	return DefaultSnooze, d
}

type period struct {
	kind    history.EventType
	span    string
	length  time.Duration
	message string
}

// Run parses spec and executes the timer until the user stops it. A parse
// failure returns duration.ErrParse before anything is registered.
func (e *Engine) Run(ctx context.Context, spec, message string) error {
	length, err := duration.Parse(spec)
	if err != nil {
		return err
	}
	metrics.IncStart(e.opts.Foreground)

	p := period{kind: history.EventStart, span: spec, length: length, message: message}
	for {
		if err := e.enter(ctx, p); err != nil {
			return err
		}
		if err := e.wait(ctx, p.length); err != nil {
			return err
		}

		e.state = StateExpired
		metrics.IncExpired()
		e.log.Info("timer expired", "id", e.id, "message", p.message)
		e.export(history.EventExpire, p)
		_, _ = fmt.Fprintln(e.opts.Out, "Time's up!")

		action, err := e.opts.Notifier.Notify(ctx, p.message)
		if err != nil {
			e.log.Warn("notifier failed, stopping", "id", e.id, "error", err)
			action = notify.Stop
		}
		metrics.IncAction(string(action))

		if err := e.opts.Store.Remove(ctx, e.id); err != nil {
			return err
		}

		switch action {
		case notify.Snooze:
			span, d := ResolveSnooze(e.opts.Snooze)
			p = period{kind: history.EventSnooze, span: span, length: d, message: SnoozedPrefix + message}
		case notify.Restart:
			p = period{kind: history.EventRestart, span: spec, length: length, message: RestartedPrefix + message}
		default:
			e.state = StateStopped
			e.log.Info("timer stopped", "id", e.id)
			e.export(history.EventStop, p)
			return nil
		}
		e.log.Info("timer "+string(p.kind), "old_id", e.id, "duration", p.span)
	}
}

// enter registers a new waiting period and records it in the history.
func (e *Engine) enter(ctx context.Context, p period) error {
	id, err := e.opts.Store.Insert(ctx, p.span, p.message, e.opts.PID)
	if err != nil {
		return err
	}
	e.id = id
	e.started = e.opts.Now()
	e.state = StateRunning

	err = e.opts.Store.AppendHistory(ctx, registry.HistoryEntry{
		Timestamp:  e.started,
		Duration:   p.span,
		Message:    p.message,
		Foreground: e.opts.Foreground,
	})
	if err != nil {
		_ = e.opts.Store.Remove(ctx, id)
		return err
	}

	metrics.ObserveWait(p.length.Seconds())
	e.log.Info("timer running", "id", id, "duration", p.span, "message", p.message)
	e.export(p.kind, p)
	return nil
}

func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if !e.opts.Foreground {
		return e.opts.Sleep(ctx, d)
	}
	deadline := e.opts.Now().Add(d)
	for {
		left := deadline.Sub(e.opts.Now())
		_, _ = fmt.Fprintf(e.opts.Out, "\rTime remaining: %s", duration.Clock(left))
		if left <= 0 {
			break
		}
		if err := e.opts.Sleep(ctx, min(time.Second, left)); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintln(e.opts.Out)
	return nil
}

// export mirrors an event to the history sink; failures are only logged.
func (e *Engine) export(kind history.EventType, p period) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	ev := history.Event{
		Type:       kind,
		OccurredAt: e.opts.Now(),
		Series:     e.series,
		Timer: registry.Timer{
			ID:        e.id,
			PID:       e.opts.PID,
			StartedAt: e.started,
			Duration:  p.span,
			Message:   p.message,
		},
	}
	if err := e.opts.Sink.Send(ctx, ev); err != nil {
		metrics.IncSinkError(string(kind))
		e.log.Warn("history export failed", "event", kind, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
