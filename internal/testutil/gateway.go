package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/formsession/internal/document"
)

// ErrGatewayUnavailable is the default failure returned by RecordingGateway.
var ErrGatewayUnavailable = errors.New("gateway unavailable")

// RecordingGateway is an in-memory persistence gateway that records every
// document it is asked to save.
//
// Failures are scripted with FailNext. Each recorded document is a deep copy,
// so later edits in the session cannot change what was "persisted".
//
// Thread-safety: All methods are safe for concurrent use.
type RecordingGateway struct {
	mu       sync.Mutex
	saved    []document.Document
	attempts int
	failN    int
	failErr  error
	panicN   int
	block    chan struct{}
	entered  chan struct{}
}

// NewRecordingGateway creates a gateway that succeeds on every call.
func NewRecordingGateway() *RecordingGateway {
	return &RecordingGateway{}
}

// Save records doc, or fails if a failure is scripted.
func (g *RecordingGateway) Save(ctx context.Context, doc document.Document) error {
	g.mu.Lock()
	g.attempts++
	block, entered := g.block, g.entered
	g.mu.Unlock()

	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.panicN > 0 {
		g.panicN--
		panic("recording gateway: scripted panic")
	}
	if g.failN > 0 {
		g.failN--
		if g.failErr != nil {
			return g.failErr
		}
		return ErrGatewayUnavailable
	}
	g.saved = append(g.saved, doc.Clone())
	return nil
}

// FailNext makes the next n calls fail with err (ErrGatewayUnavailable when
// err is nil).
func (g *RecordingGateway) FailNext(n int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failN = n
	g.failErr = err
}

// PanicNext makes the next n calls panic.
func (g *RecordingGateway) PanicNext(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.panicN = n
}

// Block makes subsequent calls wait until the returned release function is
// called. Each blocked call sends on entered (if non-nil) once it is inside
// Save, so tests can act while a write is in flight.
func (g *RecordingGateway) Block(entered chan struct{}) (release func()) {
	ch := make(chan struct{})
	g.mu.Lock()
	g.block = ch
	g.entered = entered
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.block = nil
			g.entered = nil
			g.mu.Unlock()
			close(ch)
		})
	}
}

// Saved returns copies of every successfully saved document, oldest first.
func (g *RecordingGateway) Saved() []document.Document {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]document.Document, len(g.saved))
	for i, d := range g.saved {
		out[i] = d.Clone()
	}
	return out
}

// Count returns the number of successful saves.
func (g *RecordingGateway) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saved)
}

// Attempts returns the number of Save calls, failed ones included.
func (g *RecordingGateway) Attempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// Last returns the most recently saved document.
func (g *RecordingGateway) Last() (document.Document, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.saved) == 0 {
		return document.Document{}, false
	}
	return g.saved[len(g.saved)-1].Clone(), true
}
