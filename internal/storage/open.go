package storage

import (
	"errors"
	"strings"
	"time"

	"latepost/internal/post"
	logx "latepost/pkg/logx"
)

// Config configures storage.
//
// Driver values:
//   - "file" (default): JSON documents under Path (a directory)
//   - "mem": ephemeral in-process store
//   - "sqlite": SQLite database file at Path (build with -tags sqlite)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (post.Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "mem", "memory":
		return OpenMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
