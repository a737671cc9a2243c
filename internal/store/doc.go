// Package store provides the SQLite-backed persistence gateway for
// editing sessions.
//
// The store keeps:
//   - Documents: the latest stored state per document ID (full replace)
//   - Revisions: an append-only log of every stored content version
//
// # Critical Patterns
//
// Whole-document replace: Save never merges. The row for doc.ID becomes
// exactly the document that was shipped.
//
// Idempotent retry: a Save whose content hash equals the stored hash is a
// no-op, so retrying an unchanged document writes nothing and appends no
// revision.
//
// Deterministic reads: revision queries use ORDER BY seq ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Bodies and content hashes come from document.MarshalCanonical and
// document.Hash.
package store
