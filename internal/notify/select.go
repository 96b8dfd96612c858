package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
)

// Env describes what the current process can talk to.
type Env struct {
	In       io.Reader
	Out      io.Writer
	Terminal bool   // In and Out are an interactive terminal
	Exe      string // path used to spawn the dialog helper
}

// HasDisplay reports whether a graphical dialog can be shown.
func HasDisplay() bool {
	switch runtime.GOOS {
	case "windows", "darwin":
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// Select picks the notifier named by kind ("auto", "console" or "dialog").
// auto prefers the dialog when a display is available and falls back to the
// console prompt on a terminal; without either the returned notifier always
// fails, which the lifecycle treats as stop.
func Select(kind string, env Env, display bool) Notifier {
	helper := Helper{Path: env.Exe, Args: []string{"dialog", "--message"}}
	console := &Console{In: env.In, Out: env.Out}
	switch kind {
	case "console":
		return console
	case "dialog":
		return helper
	}
	if display && env.Exe != "" {
		return helper
	}
	if env.Terminal {
		return console
	}
	return unavailable{}
}

type unavailable struct{}

func (unavailable) Notify(context.Context, string) (Action, error) {
	return "", fmt.Errorf("%w: no display and no terminal", ErrNoAnswer)
}
