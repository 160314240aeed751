// Package digest implements content addressing for the loom substrate.
//
// Snapshot manifests and blob identities are derived from RFC 8785 canonical
// JSON hashed with domain-separated SHA-256. Canonical serialization is the
// ONLY serialization used for identity computation: the same logical value
// always produces the same digest, across processes and across replays.
//
// Canonical JSON rules enforced here:
//   - Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//   - No HTML escaping (< > & are NOT escaped)
//   - Strings NFC normalized at the serialization boundary
//   - No floats (returns error)
//   - No nulls (returns error)
package digest
