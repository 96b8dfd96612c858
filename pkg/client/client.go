// Package client talks to the HTTP API served by "bgtimer serve".
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the server has no live timer with the id.
var ErrNotFound = errors.New("timer not found")

// Client provides HTTP client functionality to communicate with a bgtimer server
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8787/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new bgtimer API client
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the server is running and answering under the base URL
func (c *Client) IsReachable(ctx context.Context) bool {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/timers")
	if err != nil {
		c.logger.Debug("Server unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode == http.StatusOK
	c.logger.Debug("Server reachability check", "reachable", ok, "status", resp.StatusCode)
	return ok
}

// ListTimers returns the server's current snapshot. Expired timers are reaped
// by the server while building it.
func (c *Client) ListTimers(ctx context.Context) (Frame, error) {
	var f Frame
	err := c.getJSON(ctx, c.baseURL+"/timers", &f)
	return f, err
}

// GetTimer returns one live timer or ErrNotFound.
func (c *Client) GetTimer(ctx context.Context, id int64) (Timer, error) {
	var t Timer
	err := c.getJSON(ctx, c.timerURL(id), &t)
	return t, err
}

// KillTimer terminates the timer's process and removes its record.
func (c *Client) KillTimer(ctx context.Context, id int64) error {
	c.logger.Debug("Killing timer", "id", id)
	resp, err := c.do(ctx, http.MethodDelete, c.timerURL(id))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.handleErrorResponse(resp)
}

// KillAll terminates every live timer and returns how many were killed.
func (c *Client) KillAll(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodDelete, c.baseURL+"/timers")
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.handleErrorResponse(resp); err != nil {
		return 0, err
	}
	var out killAllResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return out.Killed, nil
}

// History returns the newest limit entries; limit <= 0 uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	u := c.baseURL + "/history"
	if limit > 0 {
		u += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out []HistoryEntry
	err := c.getJSON(ctx, u, &out)
	return out, err
}

func (c *Client) timerURL(id int64) string {
	return c.baseURL + "/timers/" + strconv.FormatInt(id, 10)
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, u)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", u)
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, errorResp.Error)
	}

	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
