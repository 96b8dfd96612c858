package registry

import (
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable means the backing sqlite file could not be opened or created.
	ErrStoreUnavailable = errors.New("registry store unavailable")
	// ErrNotFound is returned by lookups of an id that is not registered.
	ErrNotFound = errors.New("timer not found")
)

// DefaultHistoryLimit is used by ListHistory when no positive limit is given.
const DefaultHistoryLimit = 20

// Timer is one row of active_timers: a waiting period owned by the process PID.
// Duration is the span as the user typed it; it is re-parsed on every read.
type Timer struct {
	ID        int64     `json:"id" yaml:"id"`
	PID       int       `json:"pid" yaml:"pid"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	Duration  string    `json:"duration" yaml:"duration"`
	Message   string    `json:"message" yaml:"message"`
}

// HistoryEntry is one append-only row of timer_history, written each time a
// timer enters its running state.
type HistoryEntry struct {
	ID         int64     `json:"id" yaml:"id"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Duration   string    `json:"duration" yaml:"duration"`
	Message    string    `json:"message" yaml:"message"`
	Foreground bool      `json:"foreground" yaml:"foreground"`
}
