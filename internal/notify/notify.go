// Package notify asks the user what to do with an expired timer.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Action is the user's decision for an expired timer.
type Action string

const (
	Snooze  Action = "snooze"
	Restart Action = "restart"
	Stop    Action = "stop"
)

// ErrNoAnswer means the collaborator ended without choosing an action.
var ErrNoAnswer = errors.New("notifier returned no action")

// ParseAction accepts the full token or its first letter, case-insensitively.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "snooze", "s":
		return Snooze, nil
	case "restart", "r":
		return Restart, nil
	case "stop", "x", "q":
		return Stop, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrNoAnswer, s)
}

// Notifier displays message and blocks until the user picks an action.
type Notifier interface {
	Notify(ctx context.Context, message string) (Action, error)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, message string) (Action, error)

func (f Func) Notify(ctx context.Context, message string) (Action, error) { return f(ctx, message) }
