package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
)

// Get returns the snapshot stored under manifestDigest.
// Returns (Snapshot{}, false, nil) if no such manifest exists.
//
// Entries are ordered deterministically: ORDER BY path COLLATE BINARY.
func (s *Store) Get(ctx context.Context, manifestDigest string) (Snapshot, bool, error) {
	var root string
	err := s.db.QueryRowContext(ctx, `
		SELECT root FROM manifests WHERE digest = ?
	`, manifestDigest).Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("query manifest: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, blob_digest, size
		FROM manifest_entries
		WHERE manifest_digest = ?
		ORDER BY path COLLATE BINARY ASC
	`, manifestDigest)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("query manifest entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.BlobDigest, &e.Size); err != nil {
			return Snapshot{}, false, fmt.Errorf("scan manifest entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, fmt.Errorf("iterate manifest entries: %w", err)
	}

	return Snapshot{Digest: manifestDigest, Root: root, Entries: entries}, true, nil
}

// Contents returns the raw bytes of a stored blob.
func (s *Store) Contents(ctx context.Context, blobDigest string) ([]byte, error) {
	var size int64
	err := s.db.QueryRowContext(ctx, `
		SELECT size FROM blobs WHERE digest = ?
	`, blobDigest).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: not found", blobDigest)
	}
	if err != nil {
		return nil, fmt.Errorf("query blob: %w", err)
	}

	data, err := os.ReadFile(s.blobPath(blobDigest))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", blobDigest, err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("blob %s: size mismatch (index %d, disk %d)", blobDigest, size, len(data))
	}
	return data, nil
}

// HasBlob reports whether a blob digest is present in the index.
func (s *Store) HasBlob(ctx context.Context, blobDigest string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM blobs WHERE digest = ?
	`, blobDigest).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query blob: %w", err)
	}
	return true, nil
}
