// Package duration parses human-entered timer spans such as "90s", "1h5m" or
// "1min 30 seconds" and formats countdowns for display.
package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrParse is returned for any span that cannot be interpreted.
var ErrParse = errors.New("invalid duration")

// units are matched case-sensitively.
var units = map[string]time.Duration{
	"ns": time.Nanosecond, "nsec": time.Nanosecond,
	"us": time.Microsecond, "usec": time.Microsecond, "µs": time.Microsecond,
	"ms": time.Millisecond, "msec": time.Millisecond, "millis": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// Parse converts s into a duration. A span is a sequence of <number><unit>
// terms, optionally separated by whitespace ("1min 30 seconds", "2h30m").
// A bare number without unit is rejected.
func Parse(s string) (time.Duration, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, fmt.Errorf("%w: empty string", ErrParse)
	}
	var total time.Duration
	rest := in
	for {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			break
		}
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("%w: expected number at %q", ErrParse, rest)
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrParse, err)
		}
		rest = strings.TrimLeftFunc(rest[i:], unicode.IsSpace)
		j := 0
		for j < len(rest) {
			r := rune(rest[j])
			if r < 0x80 && !unicode.IsLetter(r) {
				break
			}
			j++
		}
		if j == 0 {
			return 0, fmt.Errorf("%w: missing unit in %q", ErrParse, in)
		}
		unit, ok := units[rest[:j]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q", ErrParse, rest[:j])
		}
		if n > int64((1<<63-1)/unit) {
			return 0, fmt.Errorf("%w: %q overflows", ErrParse, in)
		}
		total += time.Duration(n) * unit
		if total < 0 {
			return 0, fmt.Errorf("%w: %q overflows", ErrParse, in)
		}
		rest = rest[j:]
	}
	return total, nil
}

// Clock renders d as HH:MM:SS, rounding partial seconds up so a countdown
// never shows 00:00:00 while time remains. Negative values render as zero.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
