// Package registry is the sqlite-backed record of active timers and their
// history. The same file is opened by every timer process, monitor and API
// server on the machine; each mutation is a single atomic statement, so no
// cross-process lock is needed.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultFileName is the registry file created in the temp directory.
const DefaultFileName = "bgtimer.db"

// DefaultPath returns the well-known registry location for this machine.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFileName)
}

// Store is a handle to the registry file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the registry at path and applies the schema.
// ":memory:" gives a private in-memory registry.
func Open(ctx context.Context, path string) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, fmt.Errorf("%w: empty path", ErrStoreUnavailable)
	}
	dsn := p
	if p != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create dir: %v", ErrStoreUnavailable, err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", p)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %v", ErrStoreUnavailable, err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &Store{db: db, path: p}, nil
}

// Close releases the database handle. It is safe on a nil or closed Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the file the store was opened on.
func (s *Store) Path() string { return s.path }

// Insert registers a new waiting period starting now and returns its id.
func (s *Store) Insert(ctx context.Context, duration, message string, pid int) (int64, error) {
	return s.InsertAt(ctx, Timer{PID: pid, StartedAt: time.Now(), Duration: duration, Message: message})
}

// InsertAt registers t as given; t.ID is ignored and a fresh id is assigned.
func (s *Store) InsertAt(ctx context.Context, t Timer) (int64, error) {
	if t.StartedAt.IsZero() {
		t.StartedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO active_timers(pid, started, duration, message)
VALUES (?, ?, ?, ?)`, t.PID, ts(t.StartedAt), t.Duration, t.Message)
	if err != nil {
		return 0, fmt.Errorf("insert timer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert timer id: %w", err)
	}
	return id, nil
}

// Remove deletes the record with id. Removing an absent id is not an error:
// the owning process, a monitor and a reaper may all race to delete the same row.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_timers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove timer %d: %w", id, err)
	}
	return nil
}

// Get returns a single record or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Timer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, pid, started, duration, message FROM active_timers WHERE id = ?`, id)
	t, err := scanTimer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Timer{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Timer{}, fmt.Errorf("get timer %d: %w", id, err)
	}
	return t, nil
}

// ListActive returns a snapshot of all records ordered by id.
func (s *Store) ListActive(ctx context.Context) ([]Timer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, pid, started, duration, message FROM active_timers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list timers: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]Timer, 0)
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AppendHistory adds one history row. A zero Timestamp means now.
func (s *Store) AppendHistory(ctx context.Context, e HistoryEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO timer_history(timestamp, duration, message, fg)
VALUES (?, ?, ?, ?)`, ts(e.Timestamp), e.Duration, e.Message, boolToInt(e.Foreground))
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListHistory returns the most recent limit entries, newest first.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, timestamp, duration, message, fg
FROM timer_history
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e     HistoryEntry
			stamp string
			fg    int
		)
		if err := rows.Scan(&e.ID, &stamp, &e.Duration, &e.Message, &fg); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.Timestamp, err = parseTS(stamp); err != nil {
			return nil, fmt.Errorf("history %d timestamp: %w", e.ID, err)
		}
		e.Foreground = fg != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountActive is used by the metrics gauge.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM active_timers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count timers: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTimer(r scanner) (Timer, error) {
	var (
		t       Timer
		started string
	)
	if err := r.Scan(&t.ID, &t.PID, &started, &t.Duration, &t.Message); err != nil {
		return Timer{}, err
	}
	st, err := parseTS(started)
	if err != nil {
		return Timer{}, fmt.Errorf("timer %d started: %w", t.ID, err)
	}
	t.StartedAt = st
	return t, nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
