package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/bgtimer"
	"github.com/loykin/bgtimer/internal/spawn"
)

const defaultMessage = "Time's up!"

func createListCommand(c *command, flags *GlobalFlags, out *OutputFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show active timers once",
		Long: `Show every active timer with its remaining time.
Timers whose deadline has passed are removed from the registry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List(cmd.Context(), *flags, *out)
		},
	}
	cmd.Flags().StringVarP(&out.Output, "output", "o", "table", "output format: table|json|yaml")
	addRemoteFlags(cmd, &out.APIUrl, &out.APITimeout)
	return cmd
}

func createMonitorCommand(c *command, flags *GlobalFlags, mf *MonitorFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live view of active timers",
		Long: `Redraw the active timers every second. Type an id and press enter to
kill that timer, or type 'all' to kill every listed timer. Press Ctrl+C to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Monitor(cmd.Context(), *flags, *mf)
		},
	}
	cmd.Flags().StringVar(&mf.MetricsListen, "metrics-listen", "", "serve prometheus metrics on this address while monitoring")
	return cmd
}

func createKillCommand(c *command, flags *GlobalFlags, kf *KillFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill <id|all>",
		Short: "Terminate a timer, or all timers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Kill(cmd.Context(), *flags, *kf, args[0])
		},
	}
	addRemoteFlags(cmd, &kf.APIUrl, &kf.APITimeout)
	return cmd
}

func addRemoteFlags(cmd *cobra.Command, apiURL *string, timeout *time.Duration) {
	cmd.Flags().StringVar(apiURL, "api-url", "", "bgtimer server URL (e.g. http://host:8787/api)")
	cmd.Flags().DurationVar(timeout, "api-timeout", 10*time.Second, "request timeout")
}

func createHistoryCommand(c *command, flags *GlobalFlags, out *OutputFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [N]",
		Short: "Show the last N timers started (default 20)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 0
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return fmt.Errorf("invalid history count %q", args[0])
				}
				n = v
			}
			return c.History(*flags, *out, n)
		},
	}
	cmd.Flags().StringVarP(&out.Output, "output", "o", "table", "output format: table|json|yaml")
	addRemoteFlags(cmd, &out.APIUrl, &out.APITimeout)
	return cmd
}

func createPruneCommand(c *command, flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove timers whose process no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Prune(cmd.Context(), *flags)
		},
	}
}

func createServeCommand(c *command, flags *GlobalFlags, sf *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for active timers and history",
		Long: `Serve a JSON API over the timer registry together with prometheus metrics.

Examples:
  bgtimer serve
  bgtimer serve --listen 127.0.0.1:9000 --base-path /timers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Serve(cmd.Context(), *flags, *sf)
		},
	}
	cmd.Flags().StringVar(&sf.Listen, "listen", "", "listen address (overrides server.listen)")
	cmd.Flags().StringVar(&sf.BasePath, "base-path", "", "API base path (overrides server.base_path)")
	return cmd
}

// createRunCommand is the entry point of a detached timer process.
func createRunCommand(c *command, flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:    spawn.RunCommand + " -- <duration> <message>",
		Hidden: true,
		Args:   cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.RunDetached(cmd.Context(), *flags, args[0], args[1])
		},
	}
}

// createDialogCommand is the notification helper spawned by a timer process.
func createDialogCommand(c *command, df *DialogFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "dialog",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Dialog(*df)
		},
	}
	cmd.Flags().StringVar(&df.Message, "message", defaultMessage, "message to show")
	return cmd
}

// command carries the process stdio so commands can be driven from tests.
type command struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	exe    func() (string, error)
	detach func(exe string, args []string) (int, error)
	ask    func(message string) string
	pid    int
}

func newCommand(in io.Reader, out, errOut io.Writer) *command {
	return &command{
		in:     in,
		out:    out,
		errOut: errOut,
		exe:    os.Executable,
		detach: spawn.Detach,
		ask:    askDialog,
		pid:    os.Getpid(),
	}
}

// open loads configuration and opens the registry with a console logger.
func (c *command) open(ctx context.Context, flags GlobalFlags) (*bgtimer.App, error) {
	conf, err := bgtimer.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	return c.openWith(ctx, conf, consoleLogger(c.errOut, conf.Log.Level))
}

func (c *command) openWith(ctx context.Context, conf *bgtimer.Config, log *slog.Logger) (*bgtimer.App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bgtimer.Open(ctx, conf, log)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", conf.StorePath, err)
	}
	return app, nil
}

func ctxOr(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func normalizeOutput(s string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "table":
		return "table", nil
	case "json", "yaml":
		return v, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}
