package config

import (
	"fmt"
	"strings"
	"time"
)

// parseDuration parses an optional duration field. Empty means def.
func parseDuration(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// PollTimeoutDuration resolves telegram.poll_timeout (default 10s).
func (c TelegramConfig) PollTimeoutDuration() (time.Duration, error) {
	return parseDuration("telegram.poll_timeout", c.PollTimeout, 10*time.Second)
}

// IntervalDuration resolves dispatch.interval (default 1m).
func (c DispatchConfig) IntervalDuration() (time.Duration, error) {
	return parseDuration("dispatch.interval", c.Interval, time.Minute)
}

// BusyTimeoutDuration resolves storage.busy_timeout (no default; zero lets
// the driver pick).
func (c StorageConfig) BusyTimeoutDuration() (time.Duration, error) {
	return parseDuration("storage.busy_timeout", c.BusyTimeout, 0)
}
