// Package scheduler debounces persist requests for one document.
//
// A Scheduler holds at most one armed timer. Every Schedule call cancels
// and rearms it, so a stream of edits faster than the delay never fires
// until the stream pauses. The flush callback reads the document when it
// runs, never a value captured at schedule time.
//
// Thread-safety model:
//   - Schedule, Cancel, Armed, Immediate: safe from any goroutine
//   - flushes never overlap; a flush that starts while another is running
//     waits for it and then runs against the freshest state
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/formsession/internal/clock"
)

// DefaultDelay is the debounce delay used when none is configured.
const DefaultDelay = 2 * time.Second

// Reasons passed to the flush callback.
const (
	ReasonDebounce = "debounce"
	ReasonSaveNow  = "save_now"
	ReasonRetry    = "retry"
	ReasonClose    = "close"
)

// FlushFunc persists the current document. reason says what triggered it.
type FlushFunc func(ctx context.Context, reason string) error

// Scheduler is the single persist-triggering authority of a session.
type Scheduler struct {
	flush   FlushFunc
	clock   clock.Clock
	delay   time.Duration
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	timer  clock.Timer
	gen    uint64 // bumped on every arm/cancel so a stale fire is dropped
	closed bool

	flight sync.Mutex // held for the duration of a flush
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source. Default: clock.Real.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithDelay sets the debounce delay. Non-positive values keep the default.
//
// Default: 2s (DefaultDelay)
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithFlushTimeout bounds flushes started by a timer fire. Zero means no
// bound. Immediate flushes use the caller's context.
func WithFlushTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a scheduler that calls flush when a timer fires.
func New(flush FlushFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		flush:  flush,
		clock:  clock.Real{},
		delay:  DefaultDelay,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Delay returns the configured debounce delay.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Schedule arms the timer with the configured delay, cancelling any armed
// timer first.
func (s *Scheduler) Schedule() {
	s.ScheduleAfter(s.delay)
}

// ScheduleAfter arms the timer with delay d, cancelling any armed timer
// first. It is a no-op after Close.
func (s *Scheduler) ScheduleAfter(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

// Cancel disarms the timer if one is armed.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Armed reports whether a timer is armed.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Immediate cancels any armed timer and flushes synchronously, returning
// the flush error. It runs even after Close so a final flush can be forced.
func (s *Scheduler) Immediate(ctx context.Context, reason string) error {
	s.Cancel()
	return s.run(ctx, reason)
}

// Close disarms the timer and makes further Schedule calls no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.closed = true
}

func (s *Scheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.run(ctx, ReasonDebounce); err != nil {
		// The flush callback records the failure in status; nothing to
		// return to here.
		s.logger.Debug("debounced flush failed", "error", err)
	}
}

func (s *Scheduler) run(ctx context.Context, reason string) error {
	s.flight.Lock()
	defer s.flight.Unlock()
	return s.flush(ctx, reason)
}
