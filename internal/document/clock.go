package document

import "sync/atomic"

// RevisionClock is a monotonic logical clock stamping applied changes.
//
// Every successful Apply or Restore takes the next value, so Revision on a
// Document orders edits within a session without consulting wall time.
// Safe for concurrent use.
type RevisionClock struct {
	seq atomic.Int64
}

// NewRevisionClock creates a clock starting at 0.
func NewRevisionClock() *RevisionClock {
	return &RevisionClock{}
}

// NewRevisionClockAt creates a clock resuming after start, used when a
// session reopens a document that already carries a revision.
func NewRevisionClockAt(start int64) *RevisionClock {
	c := &RevisionClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next revision and advances the clock.
func (c *RevisionClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued revision without advancing.
func (c *RevisionClock) Current() int64 {
	return c.seq.Load()
}
