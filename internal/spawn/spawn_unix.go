//go:build !windows

package spawn

import (
	"os/exec"
	"syscall"
)

// configureDetachAttrs starts the child in a new session so it is detached
// from the controlling terminal and survives the parent.
func configureDetachAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
