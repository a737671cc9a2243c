// Package history keeps the bounded undo and redo stacks of an editing
// session.
//
// Every entry is a deep copy owned by the stack. Nothing pushed or returned
// shares mutable structure with the caller's live document.
package history

import (
	"time"

	"github.com/roach88/formsession/internal/document"
)

// DefaultMaxDepth is the undo depth used when none is configured.
const DefaultMaxDepth = 50

// Entry is one snapshot and the time it was captured.
type Entry struct {
	Document document.Document
	At       time.Time
}

// Stack is a pair of bounded LIFO stacks. Not safe for concurrent use; the
// session calls it under its own lock.
type Stack struct {
	undo     []Entry
	redo     []Entry
	maxDepth int
	now      func() time.Time
}

// Option configures a Stack.
type Option func(*Stack)

// WithMaxDepth bounds both stacks. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(s *Stack) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithNow sets the timestamp source for entries.
func WithNow(now func() time.Time) Option {
	return func(s *Stack) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty stack.
func New(opts ...Option) *Stack {
	s := &Stack{
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push records the pre-mutation snapshot. The oldest entry is evicted once
// the depth cap is exceeded, and the redo stack is cleared.
func (s *Stack) Push(snap document.Document) {
	s.undo = s.pushBounded(s.undo, snap)
	s.redo = nil
}

// Undo pops the most recent snapshot and moves current onto the redo stack.
// With nothing to undo it returns false and changes nothing.
func (s *Stack) Undo(current document.Document) (document.Document, bool) {
	if len(s.undo) == 0 {
		return document.Document{}, false
	}
	top := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = s.pushBounded(s.redo, current)
	return top.Document.Clone(), true
}

// Redo is the inverse of Undo.
func (s *Stack) Redo(current document.Document) (document.Document, bool) {
	if len(s.redo) == 0 {
		return document.Document{}, false
	}
	top := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = s.pushBounded(s.undo, current)
	return top.Document.Clone(), true
}

func (s *Stack) pushBounded(stack []Entry, snap document.Document) []Entry {
	stack = append(stack, Entry{Document: snap.Clone(), At: s.now()})
	if over := len(stack) - s.maxDepth; over > 0 {
		// Copy down so the evicted entries can be collected.
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }
func (s *Stack) UndoDepth() int { return len(s.undo) }
func (s *Stack) RedoDepth() int { return len(s.redo) }
func (s *Stack) MaxDepth() int { return s.maxDepth }

// Clear drops both stacks.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
}

// Entries returns the undo entries oldest first. The documents are copies.
func (s *Stack) Entries() []Entry {
	out := make([]Entry, len(s.undo))
	for i, e := range s.undo {
		out[i] = Entry{Document: e.Document.Clone(), At: e.At}
	}
	return out
}
