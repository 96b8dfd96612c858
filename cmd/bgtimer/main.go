package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/bgtimer/internal/registry"
)

func main() {
	root := buildRoot(newCommand(os.Stdin, os.Stdout, os.Stderr))
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

// TimerFlags holds flags for starting a timer from the root command.
type TimerFlags struct {
	Foreground bool
	History    int
	Output     string
}

// OutputFlags selects how list and history print and where they read from.
type OutputFlags struct {
	Output string
	// Remote server connection
	APIUrl     string
	APITimeout time.Duration
}

// KillFlags holds flags for the kill command
type KillFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// MonitorFlags holds flags for the monitor command
type MonitorFlags struct {
	MetricsListen string
}

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	Listen   string
	BasePath string
}

// DialogFlags holds flags for the hidden dialog helper
type DialogFlags struct {
	Message string
}

// buildRoot creates the root command and attaches every subcommand.
func buildRoot(c *command) *cobra.Command {
	globalFlags := &GlobalFlags{}
	timerFlags := &TimerFlags{}
	listFlags := &OutputFlags{}
	historyFlags := &OutputFlags{}
	monitorFlags := &MonitorFlags{}
	serveFlags := &ServeFlags{}
	dialogFlags := &DialogFlags{}
	killFlags := &KillFlags{}

	root := createRootCommand(c, globalFlags, timerFlags)
	root.AddCommand(
		createListCommand(c, globalFlags, listFlags),
		createMonitorCommand(c, globalFlags, monitorFlags),
		createKillCommand(c, globalFlags, killFlags),
		createHistoryCommand(c, globalFlags, historyFlags),
		createPruneCommand(c, globalFlags),
		createServeCommand(c, globalFlags, serveFlags),
		createRunCommand(c, globalFlags),
		createDialogCommand(c, dialogFlags),
	)
	return root
}

// createRootCommand creates the root command which also starts timers.
func createRootCommand(c *command, flags *GlobalFlags, timerFlags *TimerFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "bgtimer <duration> [message]",
		Short: "Countdown timers that run in the background",
		Long: `bgtimer starts countdown timers that keep running after the shell exits.
When a timer expires you are asked to snooze, restart or stop it.

Examples:
  bgtimer 25m "Stand up"
  bgtimer --fg "1min 30 seconds" Tea
  bgtimer --history 5
  bgtimer monitor
  bgtimer kill all`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("history") {
				n := timerFlags.History
				// "--history 5" leaves 5 as an argument because the count is optional
				if len(args) == 1 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v <= 0 {
						return fmt.Errorf("invalid history count %q", args[0])
					}
					n = v
				}
				return c.History(*flags, OutputFlags{Output: timerFlags.Output}, n)
			}
			if len(args) == 0 {
				return cmd.Help()
			}
			message := defaultMessage
			if len(args) == 2 {
				message = args[1]
			}
			return c.Start(cmd.Context(), *flags, *timerFlags, args[0], message)
		},
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.Flags().BoolVar(&timerFlags.Foreground, "fg", false, "run the timer in the foreground with a live countdown")
	root.Flags().IntVar(&timerFlags.History, "history", registry.DefaultHistoryLimit, "show the last N timers started")
	root.Flags().Lookup("history").NoOptDefVal = strconv.Itoa(registry.DefaultHistoryLimit)
	root.Flags().StringVarP(&timerFlags.Output, "output", "o", "table", "history output format: table|json|yaml")

	return root
}
