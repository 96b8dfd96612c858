package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Helper runs a dialog in a child process and reads the chosen token from
// its stdout. A crash, a kill or garbage output all surface as an error.
type Helper struct {
	Path string   // executable, normally os.Executable()
	Args []string // arguments before the message, e.g. ["dialog", "--message"]
}

func (h Helper) Notify(ctx context.Context, message string) (Action, error) {
	args := append(append([]string{}, h.Args...), message)
	cmd := exec.CommandContext(ctx, h.Path, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: dialog helper: %v: %s", ErrNoAnswer, err, strings.TrimSpace(stderr.String()))
	}
	lines := strings.Fields(out.String())
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: dialog helper printed nothing", ErrNoAnswer)
	}
	return ParseAction(lines[len(lines)-1])
}
