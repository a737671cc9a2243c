// Package document holds the editable document model and the DocumentStore
// that owns the live value during an editing session.
//
// The store applies mutations immutable-style: every Apply builds a new
// Document value and never writes into slices reachable from an earlier one.
// Snapshots handed to history are deep clones, so no snapshot shares mutable
// substructure with the live value.
//
// Each applied mutation adds one or more change tokens to the pending set.
// Tokens are removed only when the session confirms that a persist covering
// them succeeded; a failed persist leaves the set untouched.
//
// This package imports nothing internal. Every other engine package builds
// on it.
package document
