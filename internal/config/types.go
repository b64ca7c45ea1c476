package config

// Config is the whole bot configuration. It is decoded strictly: unknown
// fields are rejected so typos surface at startup instead of silently doing
// nothing.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Dispatch DispatchConfig `json:"dispatch"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// PollTimeout is a Go duration string (default "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`

	// GroupLog is the chat id the Telegram log sink posts to.
	GroupLog string `json:"group_log,omitempty"`
}

type LoggingConfig struct {
	Level    string            `json:"level,omitempty"`
	Console  bool              `json:"console"`
	File     LogFileConfig     `json:"file,omitempty"`
	Telegram LogTelegramConfig `json:"telegram,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LogTelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type StorageConfig struct {
	// Driver: "file" (default), "mem", or "sqlite" (build tag).
	Driver string `json:"driver,omitempty"`
	// Path: data directory (file driver) or database file (sqlite driver).
	Path string `json:"path,omitempty"`
	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// DispatchConfig controls the delivery scan loop.
type DispatchConfig struct {
	// Enabled is a pointer so an omitted field defaults to true.
	Enabled *bool `json:"enabled,omitempty"`

	// Interval between scans, a Go duration string (default "1m").
	Interval string `json:"interval,omitempty"`

	// FallbackGroupID receives deliveries that carry no destination id
	// (single-destination deployments).
	FallbackGroupID string `json:"fallback_group_id,omitempty"`
}

// DispatchEnabled resolves the tri-state Enabled field.
func (c DispatchConfig) DispatchEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}
