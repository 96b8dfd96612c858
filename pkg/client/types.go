package client

import "time"

// Timer is one live timer as reported by GET /timers.
type Timer struct {
	ID        int64         `json:"id"`
	PID       int           `json:"pid"`
	StartedAt time.Time     `json:"started_at"`
	Duration  string        `json:"duration"`
	Message   string        `json:"message"`
	Remaining time.Duration `json:"remaining"`
}

// Frame is one registry snapshot.
type Frame struct {
	At       time.Time `json:"at"`
	Timers   []Timer   `json:"timers"`
	Problems []string  `json:"problems,omitempty"`
}

// HistoryEntry is one timer start recorded by the server.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Duration   string    `json:"duration"`
	Message    string    `json:"message"`
	Foreground bool      `json:"foreground"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

type killAllResponse struct {
	Killed int `json:"killed"`
}
