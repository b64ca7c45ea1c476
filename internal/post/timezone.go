package post

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the fixed user-facing format: DD-MM-YYYY HH:MM.
const DateTimeLayout = "02-01-2006 15:04"

const (
	minOffset = -12
	maxOffset = 12
)

// ParseLocal validates a user-entered local date-time string.
func ParseLocal(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: want DD-MM-YYYY HH:MM, got %q", ErrBadFormat, s)
	}
	return t, nil
}

// Normalize converts a naive local date-time plus a UTC-offset label into an
// absolute UTC instant by adding the offset's whole hours. This is a plain
// additive adjustment, not an IANA conversion: no DST, no fractional zones.
//
// The label is assumed well-formed ("UTC" + signed integer, unsigned means
// positive) because it is chosen from the set produced by Labels, not typed
// free-form. The date-time is validated and yields ErrBadFormat on mismatch.
func Normalize(label, local string) (time.Time, error) {
	t, err := ParseLocal(local)
	if err != nil {
		return time.Time{}, err
	}
	hours, err := offsetHours(label)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(time.Duration(hours) * time.Hour), nil
}

func offsetHours(label string) (int, error) {
	s := strings.TrimSpace(label)
	if !strings.HasPrefix(s, "UTC") {
		return 0, fmt.Errorf("%w: timezone label %q", ErrBadFormat, label)
	}
	raw := strings.TrimPrefix(s, "UTC")
	raw = strings.TrimPrefix(raw, "+")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: timezone label %q", ErrBadFormat, label)
	}
	return n, nil
}

// Labels returns the pre-generated offset label set, UTC-12 through UTC+12.
func Labels() []string {
	out := make([]string, 0, maxOffset-minOffset+1)
	for n := minOffset; n <= maxOffset; n++ {
		if n < 0 {
			out = append(out, fmt.Sprintf("UTC%d", n))
		} else {
			out = append(out, fmt.Sprintf("UTC+%d", n))
		}
	}
	return out
}

// ValidLabel reports whether s is one of the generated offset labels.
func ValidLabel(s string) bool {
	s = strings.TrimSpace(s)
	for _, l := range Labels() {
		if s == l {
			return true
		}
	}
	return false
}
