package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	cases := map[string]Action{
		"snooze":    Snooze,
		" S ":       Snooze,
		"restart\n": Restart,
		"R":         Restart,
		"stop":      Stop,
		"q":         Stop,
	}
	for in, want := range cases {
		got, err := ParseAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAction("later")
	assert.True(t, errors.Is(err, ErrNoAnswer))
}

func TestConsole(t *testing.T) {
	cases := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"s\n", Snooze, false},
		{"restart\n", Restart, false},
		{"\n", Stop, false},
		{"r", Restart, false}, // EOF after a token still counts
		{"", "", true},
		{"maybe\n", "", true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q", tc.in), func(t *testing.T) {
			var out strings.Builder
			c := &Console{In: strings.NewReader(tc.in), Out: &out}
			got, err := c.Notify(context.Background(), "tea is ready")
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrNoAnswer), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Contains(t, out.String(), "tea is ready")
		})
	}
}

func TestConsoleContextCancel(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = w.Close(); _ = r.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = (&Console{In: r, Out: &strings.Builder{}}).Notify(ctx, "x")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestConsoleKeepsBufferedInput(t *testing.T) {
	c := &Console{In: strings.NewReader("s\nr\n\n"), Out: &strings.Builder{}}
	for _, want := range []Action{Snooze, Restart, Stop} {
		got, err := c.Notify(context.Background(), "tea is ready")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := c.Notify(context.Background(), "tea is ready")
	assert.True(t, errors.Is(err, ErrNoAnswer), "err = %v", err)
}

func TestConsoleAnswerAfterCancel(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = w.Close(); _ = r.Close() }()
	c := &Console{In: r, Out: &strings.Builder{}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Notify(ctx, "x")
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	_, err = w.Write([]byte("r\n"))
	require.NoError(t, err)
	got, err := c.Notify(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, Restart, got)
}

// TestHelperProcess is not a real test; it stands in for the dialog helper.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv("BGTIMER_TEST_HELPER")
	if mode == "" {
		return
	}
	switch mode {
	case "crash":
		os.Exit(3)
	case "silent":
		os.Exit(0)
	default:
		fmt.Println(mode)
		os.Exit(0)
	}
}

func helperFor(t *testing.T, mode string) Helper {
	t.Setenv("BGTIMER_TEST_HELPER", mode)
	return Helper{Path: os.Args[0], Args: []string{"-test.run=^TestHelperProcess$", "--"}}
}

func TestHelper(t *testing.T) {
	got, err := helperFor(t, "restart").Notify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Restart, got)

	for _, mode := range []string{"crash", "silent", "dance"} {
		_, err := helperFor(t, mode).Notify(context.Background(), "hello")
		assert.True(t, errors.Is(err, ErrNoAnswer), "mode %s: %v", mode, err)
	}
}

func TestSelect(t *testing.T) {
	env := Env{In: strings.NewReader(""), Out: &strings.Builder{}, Exe: "/bin/bgtimer"}

	assert.IsType(t, &Console{}, Select("console", env, true))
	assert.IsType(t, Helper{}, Select("dialog", env, false))
	assert.IsType(t, Helper{}, Select("auto", env, true))

	env.Terminal = true
	assert.IsType(t, &Console{}, Select("auto", env, false))

	env.Terminal = false
	_, err := Select("auto", env, false).Notify(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrNoAnswer))
}
