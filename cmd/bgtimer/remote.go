package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/loykin/bgtimer/internal/monitor"
	"github.com/loykin/bgtimer/internal/registry"
	"github.com/loykin/bgtimer/pkg/client"
)

func (c *command) apiClient(apiURL string, timeout time.Duration) *client.Client {
	return client.New(client.Config{
		BaseURL: apiURL,
		Timeout: timeout,
		Logger:  consoleLogger(c.errOut, "error"),
	})
}

func (c *command) listRemote(ctx context.Context, of OutputFlags, format string) error {
	f, err := c.apiClient(of.APIUrl, of.APITimeout).ListTimers(ctx)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return printJSON(c.out, f)
	case "yaml":
		return printYAML(c.out, f)
	}
	monitor.Render(c.out, frameFromAPI(f))
	return nil
}

func (c *command) killRemote(ctx context.Context, kf KillFlags, target string) error {
	api := c.apiClient(kf.APIUrl, kf.APITimeout)
	if strings.EqualFold(strings.TrimSpace(target), "all") {
		n, err := api.KillAll(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.out, "Killed %d timer(s).\n", n)
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timer id %q", target)
	}
	if err := api.KillTimer(ctx, id); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("timer %d not found", id)
		}
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Killed timer %d.\n", id)
	return nil
}

func (c *command) historyRemote(ctx context.Context, of OutputFlags, format string, n int) error {
	entries, err := c.apiClient(of.APIUrl, of.APITimeout).History(ctx, n)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return printJSON(c.out, entries)
	case "yaml":
		return printYAML(c.out, entries)
	}
	local := make([]registry.HistoryEntry, len(entries))
	for i, e := range entries {
		local[i] = registry.HistoryEntry(e)
	}
	printHistory(c.out, local)
	return nil
}

func frameFromAPI(f client.Frame) monitor.Frame {
	out := monitor.Frame{At: f.At, Problems: f.Problems}
	for _, t := range f.Timers {
		out.Rows = append(out.Rows, monitor.Row{
			Timer: registry.Timer{
				ID:        t.ID,
				PID:       t.PID,
				StartedAt: t.StartedAt,
				Duration:  t.Duration,
				Message:   t.Message,
			},
			Remaining: t.Remaining,
		})
	}
	return out
}
