// Package sqlitestore persists the settings record in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/settings"

	_ "modernc.org/sqlite"
)

const recordKey = "fabricsync"

// Store implements core.SettingsStore over a single row table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ core.SettingsStore = (*Store)(nil)

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite settings path is required")
	}
	dsn := path
	if path != ":memory:" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = absPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate settings table: %w", err)
	}
	return nil
}

// Load reads the record. A missing row or a version mismatch returns ok=false.
func (s *Store) Load(ctx context.Context) (core.Settings, bool, error) {
	var (
		version int
		body    string
	)
	err := s.db.QueryRowContext(ctx, `SELECT version, body FROM settings WHERE key = ?`, recordKey).Scan(&version, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, false, nil
	}
	if err != nil {
		return core.Settings{}, false, &core.OpError{Op: "settings.sqlite.load", Kind: core.KindStorage, Err: err}
	}
	if version != core.SettingsVersion {
		return core.Settings{}, false, nil
	}
	return settings.Decode([]byte(body))
}

// Save upserts the record.
func (s *Store) Save(ctx context.Context, rec core.Settings) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return &core.OpError{Op: "settings.sqlite.marshal", Kind: core.KindStorage, Err: err}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (key, version, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET version = excluded.version, body = excluded.body, updated_at = excluded.updated_at`,
		recordKey, rec.Version, string(b), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &core.OpError{Op: "settings.sqlite.save", Kind: core.KindStorage, Err: err}
	}
	return nil
}
