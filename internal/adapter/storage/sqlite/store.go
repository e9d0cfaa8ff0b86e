// Package sqlite implements the catalog and asset store contracts on an
// embedded SQLite database. Every operation is a single transaction, so a
// record is either fully visible after a call or not at all.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed implementation of ports.Store.
//
// Thread-safety: the *sql.DB handle is safe for concurrent use; the ready
// flag is guarded so operations racing with Close fail with
// domain.ErrStorageUnavailable instead of hitting a closed handle.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu    sync.RWMutex
	ready bool

	openViews atomic.Int64
}

// Open creates (or opens) the database at dbPath and runs schema migration.
// The parent directory is created if missing.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	store.mu.Lock()
	store.ready = true
	store.mu.Unlock()

	logger.Debug("catalog store opened", slog.String("path", dbPath))
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT NOT NULL,
			track_number INTEGER NOT NULL DEFAULT 0,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			asset_id TEXT NOT NULL,
			cover_asset_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist);`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album);`,
		`CREATE TABLE IF NOT EXISTS albums (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			artist TEXT NOT NULL,
			track_ids TEXT NOT NULL,
			cover_asset_id TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS playlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			track_ids TEXT NOT NULL,
			cover_asset_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			filename TEXT NOT NULL,
			size INTEGER NOT NULL,
			sha256 TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS asset_blobs (
			sha256 TEXT PRIMARY KEY,
			content BLOB NOT NULL,
			refcount INTEGER NOT NULL
		);`,
		// Exactly one settings row
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			volume REAL NOT NULL,
			is_muted INTEGER NOT NULL,
			last_volume REAL NOT NULL,
			eq_preset TEXT NOT NULL,
			custom_eq TEXT NOT NULL,
			last_track_id TEXT NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate catalog schema: %w", err)
		}
	}
	return nil
}

// Close closes the database. Operations after Close fail with
// domain.ErrStorageUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return nil
	}
	s.ready = false
	s.mu.Unlock()

	return s.db.Close()
}

// OpenViews returns the number of asset views that have not been released.
func (s *Store) OpenViews() int {
	return int(s.openViews.Load())
}

// conn returns the handle once the store is ready.
func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, domain.ErrStorageUnavailable
	}
	return s.db, nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, op, collection string, fn func(tx *sql.Tx) error) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError(op, collection, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError(op, collection, err)
	}
	return nil
}

// Verify that Store implements the combined store contract
var _ ports.Store = (*Store)(nil)
