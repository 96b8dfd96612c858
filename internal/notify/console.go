package notify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console prompts on a terminal. An empty answer means stop. A Console keeps
// one buffered reader over In, so input typed ahead of a prompt, or a line
// read after a cancelled prompt, answers the next one.
type Console struct {
	In  io.Reader
	Out io.Writer

	mu      sync.Mutex
	r       *bufio.Reader
	pending chan answer
}

type answer struct {
	line string
	err  error
}

func (c *Console) Notify(ctx context.Context, message string) (Action, error) {
	if _, err := fmt.Fprintf(c.Out, "\a%s\n[s]nooze, [r]estart or [enter] to stop: ", message); err != nil {
		return "", err
	}

	ch := c.next()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		if a.err != nil && (!errors.Is(a.err, io.EOF) || strings.TrimSpace(a.line) == "") {
			return "", fmt.Errorf("%w: %v", ErrNoAnswer, a.err)
		}
		if strings.TrimSpace(a.line) == "" {
			return Stop, nil
		}
		return ParseAction(a.line)
	}
}

// next returns the channel of the outstanding read, starting one if none is
// in flight. At most one goroutine reads from In at a time.
func (c *Console) next() <-chan answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return c.pending
	}
	if c.r == nil {
		c.r = bufio.NewReader(c.In)
	}
	ch := make(chan answer, 1)
	r := c.r
	go func() {
		line, err := r.ReadString('\n')
		ch <- answer{line, err}
	}()
	c.pending = ch
	return ch
}
