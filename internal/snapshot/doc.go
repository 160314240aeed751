// Package snapshot implements the content-addressed snapshot store rooted at
// the engine work directory.
//
// A snapshot is a manifest of (relative path, blob digest) entries captured
// from the build root. Blob contents live as files under the work directory
// keyed by digest; manifests and their entries are indexed in SQLite so that
// lookups do not rescan the blob directory.
//
// All writes are idempotent: capturing identical content twice produces the
// same digests and no duplicate rows, which is what makes snapshots usable
// as memoization keys by the layers above.
package snapshot
