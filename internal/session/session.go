package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/formsession/internal/clock"
	"github.com/roach88/formsession/internal/document"
	"github.com/roach88/formsession/internal/history"
	"github.com/roach88/formsession/internal/metrics"
	"github.com/roach88/formsession/internal/scheduler"
	"github.com/roach88/formsession/internal/status"
	"github.com/roach88/formsession/internal/validation"
)

// Session is one editing session over one document.
//
// Thread-safety model:
//   - every method is safe from any goroutine
//   - mutation, history and validation run under one lock and never
//     interleave; mutations apply in call order
//   - the gateway write is the only call made outside the lock
//
// INVARIANTS:
//   - the live document is only changed through the DocumentStore
//   - at most one debounce timer is armed
//   - pending changes are cleared only by a successful persist of the
//     revision that was shipped
type Session struct {
	mu       sync.Mutex
	store    *document.Store
	hist     *history.Stack
	machine  *status.Machine
	findings []validation.Error
	lastHash string // content hash of the last persisted state
	closing  bool
	closed   bool
	sched    *scheduler.Scheduler
	gateway  Gateway
	feed     *Feed
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

// New opens a session over doc. A document that carries a PersistedAt time
// is treated as already durable, so an unchanged flush skips the write.
func New(gw Gateway, doc document.Document, opts ...Option) (*Session, error) {
	if gw == nil {
		return nil, ErrNilGateway
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		store:   document.NewStore(doc, cfg.storeOpts...),
		hist:    history.New(history.WithMaxDepth(cfg.historyDepth), history.WithNow(cfg.clock.Now)),
		machine: status.New(cfg.clock.Now),
		gateway: gw,
		feed:    newFeed(),
		clock:   cfg.clock,
		logger:  cfg.logger.With("document_id", doc.ID),
		metrics: cfg.metrics,
	}
	s.sched = scheduler.New(s.flush,
		scheduler.WithClock(cfg.clock),
		scheduler.WithDelay(cfg.debounce),
		scheduler.WithFlushTimeout(cfg.flushTimeout),
		scheduler.WithLogger(s.logger),
	)

	if !doc.PersistedAt.IsZero() {
		h, err := document.Hash(s.store.Current())
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		s.lastHash = h
	}
	s.findings = validation.Validate(s.store.Current())
	return s, nil
}

// ApplyMutation applies m, records the pre-mutation snapshot for undo,
// revalidates and re-arms the debounce timer. A rejected mutation returns a
// *document.MutationError and changes nothing.
func (s *Session) ApplyMutation(m document.Mutation) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return document.Document{}, err
	}

	prev := s.store.Current()
	doc, err := s.store.Apply(m)
	if err != nil {
		s.metrics.RecordMutation(string(m.Kind), false)
		s.logger.Debug("mutation rejected", "kind", m.Kind, "error", err)
		return doc.Clone(), err
	}
	s.hist.Push(prev)
	s.afterChangeLocked(string(m.Kind))
	return doc.Clone(), nil
}

// Undo restores the previous snapshot. It returns false, changing nothing,
// when there is nothing to undo.
func (s *Session) Undo() (document.Document, bool, error) {
	return s.travel("undo", s.hist.Undo)
}

// Redo re-applies the last undone snapshot.
func (s *Session) Redo() (document.Document, bool, error) {
	return s.travel("redo", s.hist.Redo)
}

func (s *Session) travel(kind string, step func(document.Document) (document.Document, bool)) (document.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return document.Document{}, false, err
	}

	target, ok := step(s.store.Current())
	if !ok {
		return s.store.Snapshot(), false, nil
	}
	doc := s.store.Restore(target)
	s.afterChangeLocked(kind)
	return doc.Clone(), true, nil
}

func (s *Session) afterChangeLocked(kind string) {
	s.findings = validation.Validate(s.store.Current())
	s.fireLocked(status.TriggerMutation, kind)
	s.metrics.RecordMutation(kind, true)
	s.metrics.SetPending(len(s.store.Pending()))
	s.logger.Debug("mutation applied",
		"kind", kind,
		"revision", s.store.Current().Revision,
		"tokens", s.store.Pending(),
	)
	s.sched.Schedule()
}

// SaveNow cancels the debounce timer and persists immediately.
func (s *Session) SaveNow(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.sched.Immediate(ctx, scheduler.ReasonSaveNow)
}

// Retry persists the latest state after a failure. With nothing pending
// it does nothing.
func (s *Session) Retry(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.sched.Immediate(ctx, scheduler.ReasonRetry)
}

// flush ships the current document through the gateway. It is the
// scheduler's only callback, so flushes never overlap.
func (s *Session) flush(ctx context.Context, reason string) error {
	s.mu.Lock()
	if s.closed || !s.store.HasPending() || !s.machine.Can(status.TriggerFlush) {
		s.mu.Unlock()
		return nil
	}
	s.fireLocked(status.TriggerFlush, reason)

	snap := s.store.Snapshot()
	snap.PersistedAt = s.clock.Now()
	revision := snap.Revision
	hash, hashErr := document.Hash(snap)
	if hashErr != nil {
		s.logger.Warn("content hash failed, writing anyway", "error", hashErr)
	}
	skip := hashErr == nil && hash == s.lastHash
	s.mu.Unlock()

	var saveErr error
	start := time.Now()
	if !skip {
		saveErr = s.save(ctx, snap)
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if saveErr != nil {
		perr := normalize(saveErr, snap, reason)
		// The failed write may still have reached the backend, so the last
		// acknowledged content is no longer known to be what it holds.
		s.lastHash = ""
		s.fireLocked(status.TriggerFailure, perr.Err.Error())
		s.metrics.RecordPersist(metrics.ResultFailure, reason, elapsed)
		s.logger.Warn("persist failed",
			"reason", reason,
			"revision", revision,
			"tokens", s.store.Pending(),
			"error", perr.Err,
		)
		return perr
	}

	s.store.ClearPending(revision)
	s.store.MarkPersisted(revision, snap.PersistedAt)
	s.lastHash = hash

	trigger := status.TriggerSuccess
	if s.store.HasPending() {
		trigger = status.TriggerSuccessStale
	}
	s.fireLocked(trigger, reason)
	s.metrics.SetPending(len(s.store.Pending()))

	if skip {
		s.metrics.RecordPersist(metrics.ResultSkipped, reason, 0)
		s.logger.Debug("content unchanged, write skipped", "reason", reason, "revision", revision)
	} else {
		s.metrics.RecordPersist(metrics.ResultSuccess, reason, elapsed)
		s.logger.Info("persisted", "reason", reason, "revision", revision, "duration", elapsed)
	}
	return nil
}

// save calls the gateway, turning a panic into an error.
func (s *Session) save(ctx context.Context, doc document.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PersistError{
				Code:     ErrCodeTransientPersist,
				Panicked: true,
				Err:      fmt.Errorf("gateway panic: %v", r),
			}
		}
	}()
	return s.gateway.Save(ctx, doc)
}

func normalize(err error, doc document.Document, reason string) *PersistError {
	perr, ok := err.(*PersistError)
	if !ok {
		perr = &PersistError{Code: ErrCodeTransientPersist, Err: err}
	}
	perr.DocumentID = doc.ID
	perr.Revision = doc.Revision
	perr.Reason = reason
	return perr
}

func (s *Session) fireLocked(trigger status.Trigger, reason string) {
	tr, err := s.machine.Fire(trigger, reason)
	if err != nil {
		// The session only fires triggers the current state accepts.
		s.logger.Error("status transition rejected", "trigger", trigger, "error", err)
		return
	}
	s.feed.push(tr)
	s.metrics.RecordTransition(string(tr.To))
}

// Status returns the host-facing save status.
func (s *Session) Status() status.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.machine.Snapshot()
	snap.Pending = s.store.Pending()
	snap.Dirty = s.store.Dirty()
	return snap
}

// ValidationErrors returns the findings for the current document.
func (s *Session) ValidationErrors() []validation.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]validation.Error(nil), s.findings...)
}

// Finalize is the publish gate: it returns a copy of the document when it
// has no validation findings, and a *FinalizeError otherwise.
func (s *Session) Finalize() (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return document.Document{}, err
	}
	if len(s.findings) > 0 {
		return document.Document{}, &FinalizeError{Errors: append([]validation.Error(nil), s.findings...)}
	}
	return s.store.Snapshot(), nil
}

// Document returns an independent copy of the live document.
func (s *Session) Document() document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// Events returns the status transition feed.
func (s *Session) Events() *Feed {
	return s.feed
}

// CanUndo reports whether Undo would change the document.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

// CanRedo reports whether Redo would change the document.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// Close tears the session down. Unsaved edits are flushed first; if that
// flush fails, Close returns an error wrapping ErrUnsavedChanges and the
// session stays open. WithDiscard skips the flush. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context, opts ...CloseOption) error {
	var cc closeConfig
	for _, opt := range opts {
		opt(&cc)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if cc.discard {
		dropped := s.store.Pending()
		s.closed = true
		s.mu.Unlock()
		s.teardown()
		if len(dropped) > 0 {
			s.logger.Warn("session discarded with unsaved changes", "tokens", dropped)
		}
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	if err := s.sched.Immediate(ctx, scheduler.ReasonClose); err != nil {
		s.mu.Lock()
		s.closing = false
		s.mu.Unlock()
		return fmt.Errorf("close session: %w: %w", ErrUnsavedChanges, err)
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.teardown()
	return nil
}

func (s *Session) teardown() {
	s.sched.Close()
	s.feed.close()
	s.logger.Debug("session closed")
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkOpenLocked()
}

func (s *Session) checkOpenLocked() error {
	if s.closed || s.closing {
		return ErrClosed
	}
	return nil
}
