package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewManager(path)
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  poll_timeout: "15s"
  group_log: "-100"
logging:
  level: debug
  console: true
storage:
  driver: file
  path: ./data
dispatch:
  interval: "30s"
  fallback_group_id: "-200"
`)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.PollTimeout != "15s" {
		t.Fatalf("telegram section = %+v", cfg.Telegram)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging section = %+v", cfg.Logging)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != "./data" {
		t.Fatalf("storage section = %+v", cfg.Storage)
	}
	if cfg.Dispatch.Interval != "30s" || cfg.Dispatch.FallbackGroupID != "-200" {
		t.Fatalf("dispatch section = %+v", cfg.Dispatch)
	}
	if !cfg.Dispatch.DispatchEnabled() {
		t.Fatal("omitted dispatch.enabled should default to true")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.json",
		`{"telegram":{"token":"t"},"dispatch":{"enabled":false}}`)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Dispatch.DispatchEnabled() {
		t.Fatal("explicit dispatch.enabled=false ignored")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.yaml", `
telegram:
  token: "t"
  tokenn: "typo"
`)
	if _, err := m.Parse(); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.json", `{"telegram":{"token":"t"}}{"x":1}`)
	if _, err := m.Parse(); err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("trailing JSON accepted: %v", err)
	}
}

func TestLoadCommitsAndGet(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.yaml", `
telegram:
  token: "t"
`)
	if got := m.Get(); got != nil {
		t.Fatalf("Get before Load = %+v", got)
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestSubscribeDropOldest(t *testing.T) {
	t.Parallel()
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	a, b := &Config{}, &Config{}
	m.publish(a)
	m.publish(b)

	// The stale item was dropped; the latest survives.
	select {
	case got := <-ch:
		if got != b {
			t.Fatal("subscriber received the stale config")
		}
	case <-time.After(time.Second):
		t.Fatal("no config delivered")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	m := NewManager("unused")
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after Unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	m.publish(&Config{})
}

func TestWatchReloadsOnChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("telegram:\n  token: \"t\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	rejectedCh := make(chan *Config, 1)
	m.SetValidator(func(ctx context.Context, cfg *Config) error {
		if cfg.Telegram.Token == "" {
			select {
			case rejectedCh <- cfg:
			default:
			}
			return errors.New("token is required")
		}
		return nil
	})
	ch := m.Subscribe(4)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	// Give the watcher a moment to register before the first write.
	time.Sleep(100 * time.Millisecond)

	// A rewrite with new content gets validated, committed, and published.
	if err := os.WriteFile(path, []byte("telegram:\n  token: \"t2\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-ch:
		if cfg.Telegram.Token != "t2" {
			t.Fatalf("published token = %q, want t2", cfg.Telegram.Token)
		}
		if m.Get() != cfg {
			t.Fatal("published config not committed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}

	// A config the validator rejects is neither committed nor published.
	if err := os.WriteFile(path, []byte("telegram:\n  token: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rejectedCh:
	case <-time.After(3 * time.Second):
		t.Fatal("validator never ran")
	}
	if m.Get().Telegram.Token != "t2" {
		t.Fatal("rejected config was committed")
	}
	select {
	case cfg := <-ch:
		t.Fatalf("rejected config published: %+v", cfg)
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop on context cancel")
	}
}

func TestDurationFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want time.Duration
		err  bool
	}{
		{"", time.Minute, false}, // omitted falls back to the default tick
		{"  30s ", 30 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"-5s", 0, true},
		{"soon", 0, true},
	}
	for _, tc := range cases {
		c := DispatchConfig{Interval: tc.raw}
		got, err := c.IntervalDuration()
		if tc.err {
			if err == nil {
				t.Errorf("%q: expected error", tc.raw)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%q: got %v, %v; want %v", tc.raw, got, err, tc.want)
		}
	}

	if d, err := (TelegramConfig{}).PollTimeoutDuration(); err != nil || d != 10*time.Second {
		t.Fatalf("omitted poll_timeout: got %v, %v; want 10s", d, err)
	}
	if d, err := (StorageConfig{}).BusyTimeoutDuration(); err != nil || d != 0 {
		t.Fatalf("omitted busy_timeout: got %v, %v; want 0", d, err)
	}
}
