// Package spawn starts detached timer processes by re-executing the binary.
package spawn

import (
	"fmt"
	"os"
	"os/exec"
)

// RunCommand is the hidden subcommand a detached child executes.
const RunCommand = "run"

// Request describes the timer a child should run.
type Request struct {
	Duration   string
	Message    string
	ConfigPath string
}

// Args builds the child's argument list. Duration and message follow "--"
// so values starting with a dash are not taken as flags.
func Args(r Request) []string {
	args := []string{RunCommand}
	if r.ConfigPath != "" {
		args = append(args, "--config", r.ConfigPath)
	}
	return append(args, "--", r.Duration, r.Message)
}

// Detach starts exe with args in a new session with no stdio and returns the
// child's pid without waiting for it. The child outlives the caller.
func Detach(exe string, args []string) (int, error) {
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return 0, fmt.Errorf("failed to get executable path: %w", err)
		}
		exe = self
	}

	// #nosec G204
	cmd := exec.Command(exe, args...)
	configureDetachAttrs(cmd)
	// nil stdio means the null device
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start timer process: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
