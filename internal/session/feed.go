package session

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/formsession/internal/status"
)

// ErrFeedClosed is returned by Feed.Next once the feed is closed and drained.
var ErrFeedClosed = errors.New("event feed closed")

// Feed is a thread-safe FIFO of status transitions.
//
// The feed is unbounded so the session never blocks on a slow host. The
// session enqueues under its own lock; hosts dequeue from any goroutine.
// Every transition is queued until read, so a host that ignores the feed
// should Drain it periodically. Dequeued slots are released and the backing
// array is compacted, so a drained feed holds no stale transitions.
//
// The feed uses a channel for signaling to enable context-aware waiting
// (prevents goroutine hangs on context cancellation).
type Feed struct {
	mu     sync.Mutex
	events []status.Transition
	head   int // index of the next transition to dequeue
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

func newFeed() *Feed {
	return &Feed{
		events: make([]status.Transition, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// push adds a transition. Returns false if the feed is closed.
func (f *Feed) push(tr status.Transition) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.events = append(f.events, tr)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case f.signal <- struct{}{}:
	default:
	}
	return true
}

// TryNext dequeues without blocking.
func (f *Feed) TryNext() (status.Transition, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head == len(f.events) {
		return status.Transition{}, false
	}
	tr := f.events[f.head]
	f.events[f.head] = status.Transition{}
	f.head++
	f.compactLocked()
	return tr, true
}

// compactLocked rewinds an empty queue and moves the live tail to the front
// once more than half of the backing array has been consumed.
func (f *Feed) compactLocked() {
	switch {
	case f.head == len(f.events):
		f.events = f.events[:0]
		f.head = 0
	case f.head >= minCompact && f.head*2 >= len(f.events):
		n := copy(f.events, f.events[f.head:])
		clear(f.events[n:])
		f.events = f.events[:n]
		f.head = 0
	}
}

const minCompact = 16

// Next blocks until a transition is available, ctx is done, or the feed is
// closed and empty (ErrFeedClosed).
func (f *Feed) Next(ctx context.Context) (status.Transition, error) {
	for {
		if tr, ok := f.TryNext(); ok {
			return tr, nil
		}

		f.mu.Lock()
		if f.closed && f.head == len(f.events) {
			f.mu.Unlock()
			return status.Transition{}, ErrFeedClosed
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return status.Transition{}, ctx.Err()
		case <-f.signal:
		}
	}
}

// Drain dequeues everything currently queued.
func (f *Feed) Drain() []status.Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]status.Transition, len(f.events)-f.head)
	copy(out, f.events[f.head:])
	clear(f.events)
	f.events = f.events[:0]
	f.head = 0
	return out
}

// Wait returns a channel that signals when transitions may be available.
func (f *Feed) Wait() <-chan struct{} {
	return f.signal
}

// Len returns the number of queued transitions.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events) - f.head
}

// close stops further pushes and wakes blocked readers. Queued transitions
// can still be read.
func (f *Feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	close(f.signal)
}
