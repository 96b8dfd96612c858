package history

import (
	"context"
	"time"

	"github.com/loykin/bgtimer/internal/registry"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart   EventType = "start"
	EventExpire  EventType = "expire"
	EventSnooze  EventType = "snooze"
	EventRestart EventType = "restart"
	EventStop    EventType = "stop"
)

// Event represents a lifecycle event to be exported to external systems.
// Series is shared by every event of one timer invocation, across the
// record ids that snoozes and restarts hand out.
type Event struct {
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Series     string         `json:"series"`
	Timer      registry.Timer `json:"timer"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Send(context.Context, Event) error { return nil }
