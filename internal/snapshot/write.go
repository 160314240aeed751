package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/loomworks/loom/internal/digest"
)

// Entry is one file recorded in a snapshot manifest.
type Entry struct {
	Path       string // relative to the captured root, slash-separated
	BlobDigest string
	Size       int64
}

// Snapshot is a captured, content-addressed view of a set of files.
type Snapshot struct {
	Digest  string
	Root    string
	Entries []Entry
}

// Capture records the given files (paths relative to root) as a snapshot.
//
// Blob writes and index rows are idempotent: capturing unchanged content
// yields the identical manifest digest and no new rows. Entries are sorted
// by path so the returned snapshot is deterministic regardless of input
// order.
func (s *Store) Capture(ctx context.Context, root string, paths []string) (Snapshot, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	entries := make([]Entry, 0, len(sorted))
	manifest := make(map[string]any, len(sorted))

	for _, rel := range sorted {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return Snapshot{}, fmt.Errorf("capture %s: %w", rel, err)
		}

		d := digest.Blob(data)
		if err := s.writeBlob(ctx, d, data); err != nil {
			return Snapshot{}, fmt.Errorf("capture %s: %w", rel, err)
		}

		entries = append(entries, Entry{Path: rel, BlobDigest: d, Size: int64(len(data))})
		manifest[rel] = d
	}

	manifestDigest, err := digest.Manifest(manifest)
	if err != nil {
		return Snapshot{}, fmt.Errorf("capture manifest: %w", err)
	}

	if err := s.writeManifest(ctx, manifestDigest, root, entries); err != nil {
		return Snapshot{}, err
	}

	slog.Debug("snapshot captured",
		"digest", manifestDigest,
		"root", root,
		"entries", len(entries),
	)

	return Snapshot{Digest: manifestDigest, Root: root, Entries: entries}, nil
}

// writeBlob stores blob contents on disk and records the digest in the
// index. Already-present blobs are left untouched.
func (s *Store) writeBlob(ctx context.Context, d string, data []byte) error {
	path := s.blobPath(d)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("write blob: %w", err)
		}
		// Write-then-rename so a crash never leaves a truncated blob under
		// its final digest name.
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("write blob: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("write blob: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("stat blob: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (digest, size)
		VALUES (?, ?)
		ON CONFLICT(digest) DO NOTHING
	`, d, int64(len(data)))
	if err != nil {
		return fmt.Errorf("index blob: %w", err)
	}

	return nil
}

// writeManifest records the manifest and its entries in one transaction, so
// a crash cannot leave a manifest row without its entries.
func (s *Store) writeManifest(ctx context.Context, manifestDigest, root string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO manifests (digest, root, entry_count, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`, manifestDigest, root, len(entries), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	// If the manifest already existed its entries do too; content addressing
	// guarantees they are identical.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tx.Commit()
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO manifest_entries (manifest_digest, path, blob_digest, size)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(manifest_digest, path) DO NOTHING
		`, manifestDigest, e.Path, e.BlobDigest, e.Size)
		if err != nil {
			return fmt.Errorf("write manifest entry %s: %w", e.Path, err)
		}
	}

	return tx.Commit()
}
