package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under dir from relative path -> contents.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}
}

func TestOpen_CreatesWorkDir(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "work", "snapshots")

	st, err := Open(workDir)
	require.NoError(t, err)
	defer st.Close()

	info, err := os.Stat(filepath.Join(workDir, "blobs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, workDir, st.WorkDir())
}

func TestOpen_UncreatableWorkDirFails(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "blocked")
	// A regular file where the parent directory should be.
	require.NoError(t, os.WriteFile(parent, []byte("not a dir"), 0o644))

	_, err := Open(filepath.Join(parent, "work"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create snapshot directory")
}

func TestOpen_Idempotent(t *testing.T) {
	workDir := t.TempDir()

	st1, err := Open(workDir)
	require.NoError(t, err)
	require.NoError(t, st1.Close())

	st2, err := Open(workDir)
	require.NoError(t, err)
	defer st2.Close()
}

func TestCapture_RoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/main.go": "package main",
		"src/lib.go":  "package lib",
	})

	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	snap, err := st.Capture(ctx, root, []string{"src/main.go", "src/lib.go"})
	require.NoError(t, err)
	require.Len(t, snap.Entries, 2)
	assert.NotEmpty(t, snap.Digest)

	// Entries sorted by path regardless of input order.
	assert.Equal(t, "src/lib.go", snap.Entries[0].Path)
	assert.Equal(t, "src/main.go", snap.Entries[1].Path)

	got, ok, err := st.Get(ctx, snap.Digest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.Entries, got.Entries)
	assert.Equal(t, root, got.Root)

	contents, err := st.Contents(ctx, snap.Entries[1].BlobDigest)
	require.NoError(t, err)
	assert.Equal(t, "package main", string(contents))
}

func TestCapture_Idempotent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello"})

	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	first, err := st.Capture(ctx, root, []string{"a.txt"})
	require.NoError(t, err)
	second, err := st.Capture(ctx, root, []string{"a.txt"})
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest, "unchanged content must re-capture to the same digest")

	n, err := st.ManifestCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "idempotent capture must not duplicate manifests")
}

func TestCapture_ContentSensitive(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello"})

	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	first, err := st.Capture(ctx, root, []string{"a.txt"})
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"a.txt": "changed"})
	second, err := st.Capture(ctx, root, []string{"a.txt"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Digest, second.Digest)
}

func TestCapture_MissingFileFails(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Capture(ctx, t.TempDir(), []string{"does/not/exist.go"})
	require.Error(t, err)
}

func TestGet_UnknownDigest(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	_, ok, err := st.Get(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasBlob(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello"})

	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	snap, err := st.Capture(ctx, root, []string{"a.txt"})
	require.NoError(t, err)

	ok, err := st.HasBlob(ctx, snap.Entries[0].BlobDigest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.HasBlob(ctx, "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	assert.False(t, ok)
}
