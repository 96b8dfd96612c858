package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/loykin/bgtimer"
	"github.com/loykin/bgtimer/internal/logger"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func printHistory(w io.Writer, entries []bgtimer.HistoryEntry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No timers in history.")
		return
	}
	_, _ = fmt.Fprintf(w, "%-20s %-16s %-4s %s\n", "STARTED", "DURATION", "FG", "MESSAGE")
	_, _ = fmt.Fprintf(w, "%-20s %-16s %-4s %s\n", "-------", "--------", "--", "-------")
	for _, e := range entries {
		fg := "no"
		if e.Foreground {
			fg = "yes"
		}
		_, _ = fmt.Fprintf(w, "%-20s %-16s %-4s %s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(e.Duration, 16), fg, e.Message)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

// isTTY reports whether v is a terminal file.
func isTTY(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func consoleLogger(w io.Writer, level string) *slog.Logger {
	return logger.NewConsole(w, strings.TrimSpace(level), isTTY(w))
}
