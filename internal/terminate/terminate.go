// Package terminate asks other timer processes to exit.
//
// Termination is fire-and-forget: one request is sent, the target is not
// watched afterwards, and the pid is not re-validated. A pid recycled by the
// OS since the timer registered could therefore be signalled by mistake.
package terminate

import (
	"errors"
	"fmt"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// ErrSignal wraps every delivery failure.
var ErrSignal = errors.New("termination request not delivered")

// Terminator sends a single termination request to pid.
type Terminator interface {
	Terminate(pid int) error
}

// Signal terminates processes with the platform primitive
// (SIGTERM on unix, TerminateProcess on windows).
type Signal struct{}

func (Signal) Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w: invalid pid %d", ErrSignal, pid)
	}
	if err := killProcess(pid); err != nil {
		return fmt.Errorf("%w: pid %d: %v", ErrSignal, pid, err)
	}
	return nil
}

// Func adapts a function to Terminator.
type Func func(pid int) error

func (f Func) Terminate(pid int) error { return f(pid) }

// Alive reports whether a process with pid currently exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}
