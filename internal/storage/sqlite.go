//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"latepost/internal/post"
	logx "latepost/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS destinations (
	pos      INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL,
	group_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS deliveries (
	pos       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        INTEGER NOT NULL,
	scheduled TEXT NOT NULL,
	post      TEXT NOT NULL,
	utc       TEXT NOT NULL,
	group_id  TEXT NOT NULL
);
`

// sqliteStore keeps the same whole-collection replace semantics as the file
// driver: every save runs DELETE + INSERTs in one transaction. The pos
// column preserves insertion order across loads.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (post.Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadDestinations(ctx context.Context) ([]post.Destination, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, group_id FROM destinations ORDER BY pos`)
	if err != nil {
		s.log.Warn("destinations unreadable; treating as empty", logx.Err(err))
		return nil, nil
	}
	defer rows.Close()

	var out []post.Destination
	for rows.Next() {
		var d post.Destination
		if err := rows.Scan(&d.Name, &d.GroupID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveDestinations(ctx context.Context, ds []post.Destination) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM destinations`); err != nil {
		return err
	}
	for _, d := range ds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO destinations(name, group_id) VALUES(?,?)`, d.Name, d.GroupID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadDeliveries(ctx context.Context) ([]post.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, scheduled, post, utc, group_id FROM deliveries ORDER BY pos`)
	if err != nil {
		s.log.Warn("deliveries unreadable; treating as empty", logx.Err(err))
		return nil, nil
	}
	defer rows.Close()

	var out []post.Delivery
	for rows.Next() {
		var d post.Delivery
		var payload string
		if err := rows.Scan(&d.ID, &d.Scheduled, &payload, &d.UTC, &d.GroupID); err != nil {
			return nil, err
		}
		d.Payload = json.RawMessage(payload)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveDeliveries(ctx context.Context, ds []post.Delivery) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deliveries`); err != nil {
		return err
	}
	for _, d := range ds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deliveries(id, scheduled, post, utc, group_id) VALUES(?,?,?,?,?)`,
			d.ID, d.Scheduled, string(d.Payload), d.UTC, d.GroupID); err != nil {
			return err
		}
	}
	return tx.Commit()
}
