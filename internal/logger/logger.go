package logger

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default logging configuration constants
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
	FileName          = "bgtimer.log"
)

// Config describes where background timers write their log.
// Every timer process on the machine appends to Dir/bgtimer.log.
// Rotation parameters follow lumberjack semantics.
type Config struct {
	Dir        string // base directory for logs
	Path       string // explicit path overrides Dir
	Level      string // debug|info|warn|error
	MaxSizeMB  int    // megabytes before rotation (default 10)
	MaxBackups int    // number of backups to keep (default 3)
	MaxAgeDays int    // days to keep (default 7)
	Compress   bool   // Gzip rotated files
}

// FilePath resolves the log file location, or "" when neither Path nor Dir is set.
func (c Config) FilePath() string {
	if c.Path != "" {
		return c.Path
	}
	if c.Dir == "" {
		return ""
	}
	return filepath.Join(c.Dir, FileName)
}

// Writer returns a rotating writer for the log file, or nil when no location is configured.
func (c Config) Writer() io.WriteCloser {
	p := c.FilePath()
	if p == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   p,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// ParseLevel maps a config string to a slog level; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewFile builds the logger used by detached timer processes. The returned
// closer flushes the rotating file; it is a no-op writer when no location is set.
func NewFile(c Config) (*slog.Logger, io.Closer) {
	w := c.Writer()
	if w == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), io.NopCloser(nil)
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(c.Level)})
	return slog.New(h), w
}

// NewConsole builds the logger for interactive commands. Colors are only
// emitted when color is true (stderr is a terminal).
func NewConsole(w io.Writer, level string, color bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if color {
		return slog.New(NewColorTextHandler(w, opts, false))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
