// Package monitor renders the live table of active timers and executes kill
// commands typed while it runs.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/loykin/bgtimer/internal/duration"
	"github.com/loykin/bgtimer/internal/metrics"
	"github.com/loykin/bgtimer/internal/registry"
	"github.com/loykin/bgtimer/internal/terminate"
)

const (
	DefaultInterval = time.Second
	DefaultPause    = 2 * time.Second

	clearScreen = "\033[H\033[2J"
	prompt      = "Enter an id to kill a timer, or 'all' to kill every timer: "
)

// Store is the part of the registry a monitor reads and reaps.
type Store interface {
	ListActive(ctx context.Context) ([]registry.Timer, error)
	Get(ctx context.Context, id int64) (registry.Timer, error)
	Remove(ctx context.Context, id int64) error
}

// Row is a live timer with its remaining time at snapshot time.
type Row struct {
	registry.Timer `yaml:",inline"`
	Remaining      time.Duration `json:"remaining" yaml:"remaining"`
}

// Frame is one snapshot of the registry. Problems holds per-record issues
// (unparseable durations, failed reaps) that did not stop the snapshot;
// the records behind them are kept in Skipped so "all" still reaches them.
type Frame struct {
	At       time.Time        `json:"at" yaml:"at"`
	Rows     []Row            `json:"timers" yaml:"timers"`
	Problems []string         `json:"problems,omitempty" yaml:"problems,omitempty"`
	Skipped  []registry.Timer `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Find looks up a row by registry id.
func (f Frame) Find(id int64) (Row, bool) {
	for _, r := range f.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// Lookup finds id among the rows and the skipped records.
func (f Frame) Lookup(id int64) (registry.Timer, bool) {
	if r, ok := f.Find(id); ok {
		return r.Timer, true
	}
	for _, t := range f.Skipped {
		if t.ID == id {
			return t, true
		}
	}
	return registry.Timer{}, false
}

// targets lists every record the frame knows about, shown rows first.
func (f Frame) targets() []registry.Timer {
	out := make([]registry.Timer, 0, len(f.Rows)+len(f.Skipped))
	for _, r := range f.Rows {
		out = append(out, r.Timer)
	}
	return append(out, f.Skipped...)
}

// Options configures a Monitor. Only Store is required.
type Options struct {
	Store      Store
	Terminator terminate.Terminator
	In         io.Reader
	Out        io.Writer
	Interval   time.Duration
	Pause      time.Duration
	Clear      bool // emit ANSI clear-screen before each frame
	Logger     *slog.Logger

	// test hooks
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Monitor renders registry snapshots and applies kill commands to them.
type Monitor struct {
	opts Options
	log  *slog.Logger
}

// New returns a Monitor with defaults applied to the unset fields of opts.
func New(opts Options) *Monitor {
	if opts.Terminator == nil {
		opts.Terminator = terminate.Signal{}
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Pause < 0 {
		opts.Pause = DefaultPause
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
	return &Monitor{opts: opts, log: opts.Logger}
}

// Snapshot lists the registry, reaps records whose deadline has passed and
// returns the rest ordered by id.
func (m *Monitor) Snapshot(ctx context.Context) (Frame, error) {
	timers, err := m.opts.Store.ListActive(ctx)
	if err != nil {
		return Frame{}, err
	}
	now := m.opts.Now()
	f := Frame{At: now, Rows: make([]Row, 0, len(timers))}
	reaped := 0
	for _, t := range timers {
		d, err := duration.Parse(t.Duration)
		if err != nil {
			f.Problems = append(f.Problems, fmt.Sprintf("timer %d skipped: %v", t.ID, err))
			f.Skipped = append(f.Skipped, t)
			continue
		}
		left := t.StartedAt.Add(d).Sub(now)
		if left <= 0 {
			if err := m.opts.Store.Remove(ctx, t.ID); err != nil {
				f.Problems = append(f.Problems, fmt.Sprintf("timer %d: reap failed: %v", t.ID, err))
				f.Skipped = append(f.Skipped, t)
				continue
			}
			reaped++
			m.log.Debug("reaped expired timer", "id", t.ID, "pid", t.PID)
			continue
		}
		f.Rows = append(f.Rows, Row{Timer: t, Remaining: left})
	}
	metrics.IncReaped(reaped)
	return f, nil
}

// Render writes f as a table.
func Render(w io.Writer, f Frame) {
	if len(f.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "No active timers.")
	} else {
		_, _ = fmt.Fprintf(w, "%-6s %-8s %-10s %-16s %s\n", "ID", "PID", "REMAINING", "DURATION", "MESSAGE")
		_, _ = fmt.Fprintf(w, "%s\n", strings.Repeat("─", 60))
		for _, r := range f.Rows {
			_, _ = fmt.Fprintf(w, "%-6d %-8d %-10s %-16s %s\n",
				r.ID, r.PID, duration.Clock(r.Remaining), r.Duration, r.Message)
		}
	}
	for _, p := range f.Problems {
		_, _ = fmt.Fprintf(w, "! %s\n", p)
	}
}

// Execute runs one command line against the frame the user was looking at
// and returns the message to display. An empty line returns "".
func (m *Monitor) Execute(ctx context.Context, line string, shown Frame) string {
	cmd := strings.TrimSpace(line)
	switch {
	case cmd == "":
		return ""
	case strings.EqualFold(cmd, "all"):
		n, err := m.KillAll(ctx, shown)
		if err != nil {
			return fmt.Sprintf("Killed %d timer(s), then error: %v", n, err)
		}
		return fmt.Sprintf("Killed %d timer(s).", n)
	}
	id, err := strconv.ParseInt(cmd, 10, 64)
	if err != nil {
		return fmt.Sprintf("invalid input: %q", cmd)
	}
	t, ok := shown.Lookup(id)
	if !ok {
		return fmt.Sprintf("timer %d not found", id)
	}
	if err := m.kill(ctx, t); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Sprintf("timer %d not found", id)
		}
		return fmt.Sprintf("error: %v", err)
	}
	return fmt.Sprintf("Killed timer %d (pid %d).", t.ID, t.PID)
}

// Kill terminates the timer with id if it is part of shown and still
// registered; otherwise it returns registry.ErrNotFound.
func (m *Monitor) Kill(ctx context.Context, id int64, shown Frame) error {
	t, ok := shown.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", registry.ErrNotFound, id)
	}
	return m.kill(ctx, t)
}

// KillAll terminates every timer in shown, including records the frame
// skipped, and removes their records. Records registered after shown was
// taken, or already gone, are left alone. The count covers the timers
// killed before any error.
func (m *Monitor) KillAll(ctx context.Context, shown Frame) (int, error) {
	n := 0
	for _, t := range shown.targets() {
		err := m.kill(ctx, t)
		if errors.Is(err, registry.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// kill signals the owner once and removes the record whether or not the
// signal could be delivered. A record that is no longer registered is not
// signalled.
func (m *Monitor) kill(ctx context.Context, r registry.Timer) error {
	if _, err := m.opts.Store.Get(ctx, r.ID); err != nil {
		return err
	}
	if err := m.opts.Terminator.Terminate(r.PID); err != nil {
		metrics.IncTermination(false)
		m.log.Warn("terminate failed", "id", r.ID, "pid", r.PID, "error", err)
	} else {
		metrics.IncTermination(true)
		m.log.Info("terminated timer", "id", r.ID, "pid", r.PID)
	}
	return m.opts.Store.Remove(ctx, r.ID)
}

// Run refreshes the table every interval until ctx is done. Input lines are
// read by a separate goroutine and picked up at most once per frame.
func (m *Monitor) Run(ctx context.Context) error {
	var lines <-chan string
	if m.opts.In != nil {
		lines = readLines(m.opts.In)
	}

	var shown Frame
	for {
		f, err := m.Snapshot(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if m.opts.Clear {
			_, _ = io.WriteString(m.opts.Out, clearScreen)
		}
		if err != nil {
			_, _ = fmt.Fprintf(m.opts.Out, "error: %v\n", err)
		} else {
			shown = f
			Render(m.opts.Out, f)
		}
		if lines != nil {
			_, _ = io.WriteString(m.opts.Out, "\n"+prompt)
		}

		wait := m.opts.Interval
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				break
			}
			if msg := m.Execute(ctx, line, shown); msg != "" {
				_, _ = fmt.Fprintf(m.opts.Out, "\n%s\n", msg)
				wait = m.opts.Pause
			}
		default:
		}

		if err := m.opts.Sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// readLines forwards each input line; the channel closes at EOF.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string, 16)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
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
