package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainBlob     = "loom/blob/v1"
	DomainManifest = "loom/manifest/v1"
	DomainTrace    = "loom/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Blob computes the content-addressed digest of raw file contents.
func Blob(data []byte) string {
	return hashWithDomain(DomainBlob, data)
}

// BlobReader computes the blob digest by streaming from r.
// Equivalent to Blob for the same bytes, without buffering the whole file.
func BlobReader(r io.Reader) (string, error) {
	h := sha256.New()
	h.Write([]byte(DomainBlob))
	h.Write([]byte{0x00})
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash blob: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Manifest computes the content-addressed digest of a snapshot manifest.
// The manifest maps relative paths to blob digests; canonical JSON makes the
// digest independent of map iteration order.
//
// Returns an error if the manifest cannot be canonically marshaled.
func Manifest(entries map[string]any) (string, error) {
	canonical, err := MarshalCanonical(entries)
	if err != nil {
		return "", fmt.Errorf("Manifest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainManifest, canonical), nil
}

// Trace computes the digest of a harness trace payload.
func Trace(payload map[string]any) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("Trace: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// MustManifest is like Manifest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustManifest(entries map[string]any) string {
	d, err := Manifest(entries)
	if err != nil {
		panic(err)
	}
	return d
}
