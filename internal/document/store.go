package document

import (
	"slices"
	"time"
)

// Store is the DocumentStore: it owns the live document value, the dirty
// marker and the pending change set for one editing session.
//
// Store is not safe for concurrent use. The session serializes every call
// under its own lock.
type Store struct {
	current Document
	dirty   bool
	pending map[string]int64 // token -> revision that last touched it
	clock   *RevisionClock
	applier applier
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator sets the generator used for fields added without an ID.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) StoreOption {
	return func(s *Store) {
		s.applier.ids = g
	}
}

// WithSanitizer replaces the label sanitizer. Pass nil to keep text as-is.
// Default: StripMarkup.
func WithSanitizer(fn func(string) string) StoreOption {
	return func(s *Store) {
		s.applier.sanitize = fn
	}
}

// NewStore creates a store owning a deep copy of doc. The revision clock
// resumes after doc.Revision.
func NewStore(doc Document, opts ...StoreOption) *Store {
	s := &Store{
		current: doc.Clone(),
		pending: make(map[string]int64),
		clock:   NewRevisionClockAt(doc.Revision),
		applier: applier{
			ids:      UUIDv7Generator{},
			sanitize: StripMarkup,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Fields = renumber(slices.Clone(s.current.Fields))
	return s
}

// Apply produces the post-mutation document, records the mutation's change
// tokens and marks the store dirty. A rejected mutation returns a
// *MutationError and leaves all state untouched.
//
// The returned value is the new live document; treat it as read-only.
func (s *Store) Apply(m Mutation) (Document, error) {
	next, tokens, err := s.applier.apply(s.current, m)
	if err != nil {
		return s.current, err
	}
	next.Revision = s.clock.Next()
	s.current = next
	s.dirty = true
	for _, t := range tokens {
		s.pending[t] = next.Revision
	}
	return s.current, nil
}

// Snapshot returns a fully independent copy of the live document.
func (s *Store) Snapshot() Document {
	return s.current.Clone()
}

// Restore replaces the live value wholesale. Used only by undo and redo.
// Token bookkeeping is bypassed except for the restore token, which keeps
// the restored state pending until it is persisted. PersistedAt is a fact
// about the backend, not about the edit, so the live value keeps its own.
func (s *Store) Restore(snap Document) Document {
	next := snap.Clone()
	next.PersistedAt = s.current.PersistedAt
	next.Revision = s.clock.Next()
	s.current = next
	s.dirty = true
	s.pending[TokenRestore] = next.Revision
	return s.current
}

// Current returns the live document. Treat it as read-only; use Snapshot
// when an independent copy is needed.
func (s *Store) Current() Document {
	return s.current
}

// Dirty reports whether the live value changed since the last persist.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Pending returns the pending change tokens in sorted order.
func (s *Store) Pending() []string {
	out := make([]string, 0, len(s.pending))
	for t := range s.pending {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// HasPending reports whether any change awaits persistence.
func (s *Store) HasPending() bool {
	return len(s.pending) > 0
}

// ClearPending removes the tokens last touched at or before revision.
// The session passes the revision it shipped, so a token touched again
// while the write was in flight stays pending.
func (s *Store) ClearPending(revision int64) {
	for t, rev := range s.pending {
		if rev <= revision {
			delete(s.pending, t)
		}
	}
}

// MarkPersisted records a successful persist of the state at revision.
// The dirty marker is dropped only when the live value is still that state.
func (s *Store) MarkPersisted(revision int64, at time.Time) {
	s.current.PersistedAt = at
	if s.current.Revision == revision && len(s.pending) == 0 {
		s.dirty = false
	}
}
