package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"latepost/internal/post"
	logx "latepost/pkg/logx"
)

// fileStore is the dependency-free persistence backend.
//
// Files under the configured directory:
//   - destinations.json
//   - deliveries.json
//
// Each collection is read and rewritten as a whole document. A missing or
// unreadable document loads as the empty collection (first-run behavior);
// writes go through a temp file + rename so a crash never leaves a
// half-written document behind.
type fileStore struct {
	log logx.Logger

	mu               sync.Mutex
	destinationsPath string
	deliveriesPath   string
}

func openFile(cfg Config, log logx.Logger) (post.Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{
		log:              log,
		destinationsPath: filepath.Join(dir, "destinations.json"),
		deliveriesPath:   filepath.Join(dir, "deliveries.json"),
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) LoadDestinations(ctx context.Context) ([]post.Destination, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadDoc[post.Destination](s.log, s.destinationsPath), nil
}

func (s *fileStore) SaveDestinations(ctx context.Context, ds []post.Destination) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds == nil {
		ds = []post.Destination{}
	}
	return s.saveDoc(s.destinationsPath, ds)
}

func (s *fileStore) LoadDeliveries(ctx context.Context) ([]post.Delivery, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadDoc[post.Delivery](s.log, s.deliveriesPath), nil
}

func (s *fileStore) SaveDeliveries(ctx context.Context, ds []post.Delivery) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds == nil {
		ds = []post.Delivery{}
	}
	return s.saveDoc(s.deliveriesPath, ds)
}

// loadDoc decodes a JSON document into a fresh collection. Missing or corrupt
// files load as empty; corruption is logged but never surfaced. Decoding into
// a local value matters: a type mismatch partway through the array must not
// leak partially decoded records to the caller.
func loadDoc[T any](log logx.Logger, path string) []T {
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("document unreadable; treating as empty", logx.String("path", path), logx.Err(err))
		}
		return nil
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		log.Warn("document corrupt; treating as empty", logx.String("path", path), logx.Err(err))
		return nil
	}
	return out
}

func (s *fileStore) saveDoc(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
