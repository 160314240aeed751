package snapshot

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added blob-digest index on manifest_entries
const currentSchemaVersion = 1

// Store is the content-addressed snapshot store.
// Uses SQLite with WAL mode for concurrent read access to the index.
type Store struct {
	db      *sql.DB
	workDir string
	blobDir string
}

// Open creates or opens the snapshot store rooted at workDir.
//
// The work directory and its blob subdirectory are created if absent; an
// uncreatable work directory is a fatal environment failure surfaced to the
// caller (the engine cannot run in a degraded no-snapshot mode).
//
// The index database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call on an existing store.
func Open(workDir string) (*Store, error) {
	blobDir := filepath.Join(workDir, "blobs")
	if err := os.MkdirAll(blobDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(workDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open snapshot index: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect snapshot index: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent captures.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, workDir: workDir, blobDir: blobDir}, nil
}

// Close closes the index database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WorkDir returns the store's root work directory.
func (s *Store) WorkDir() string {
	return s.workDir
}

// blobPath returns the on-disk location for a blob digest, sharded by the
// first two hex characters to keep directory fanout bounded.
func (s *Store) blobPath(digest string) string {
	return filepath.Join(s.blobDir, digest[:2], digest)
}

// ManifestCount returns the number of stored manifests.
func (s *Store) ManifestCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM manifests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count manifests: %w", err)
	}
	return n, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the blob-digest index for stores created before v1.
// New stores get it from schema.sql; CREATE INDEX IF NOT EXISTS is a no-op
// when it already exists.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_manifest_entries_blob
		ON manifest_entries(blob_digest)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
