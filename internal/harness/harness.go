package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/formsession/internal/definition"
	"github.com/roach88/formsession/internal/document"
	"github.com/roach88/formsession/internal/logging"
	"github.com/roach88/formsession/internal/session"
	"github.com/roach88/formsession/internal/testutil"
	"github.com/roach88/formsession/internal/validation"
)

// Harness drives one scenario. Each run gets a fresh fake clock, gateway
// and session, so runs are isolated and reproducible.
type Harness struct {
	session *session.Session
	clock   *testutil.FakeClock
	gateway *testutil.RecordingGateway
	logger  *slog.Logger
	result  *Result
	seq     int64
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes session logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Resolve the starting document (inline or from a definition file)
//  2. Open a session on a fake clock with a recording gateway
//  3. Execute steps, tracing each step and the transitions it caused
//  4. Capture persists and final state
//  5. Evaluate assertions
//
// The returned error is reserved for scenarios that cannot start; step
// failures are traced and assertion failures land in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	doc, err := startingDocument(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		clock:   testutil.NewFakeClock(),
		gateway: testutil.NewRecordingGateway(),
		logger:  logging.Discard(),
		result:  NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}

	sessOpts := []session.Option{
		session.WithClock(h.clock),
		session.WithLogger(h.logger),
		session.WithIDGenerator(document.NewSequenceGenerator("")),
	}
	if scenario.DebounceMS > 0 {
		sessOpts = append(sessOpts, session.WithDebounce(time.Duration(scenario.DebounceMS)*time.Millisecond))
	}
	if scenario.HistoryDepth > 0 {
		sessOpts = append(sessOpts, session.WithHistoryDepth(scenario.HistoryDepth))
	}
	h.session, err = session.New(h.gateway, doc, sessOpts...)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	ctx := context.Background()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	h.captureFinal()
	_ = h.session.Close(ctx, session.WithDiscard())

	checkAssertions(h.result, scenario.Assertions)
	return h.result, nil
}

func startingDocument(s *Scenario) (document.Document, error) {
	if s.Document != nil {
		return s.Document.Clone(), nil
	}
	doc, err := definition.Load(s.Definition)
	if err != nil {
		return document.Document{}, fmt.Errorf("load definition: %w", err)
	}
	return doc, nil
}

// executeStep runs one step. Session errors are expected outcomes and are
// recorded on the step event; only a malformed step aborts the run.
func (h *Harness) executeStep(ctx context.Context, step Step) error {
	op := step.Op()
	if op == "" {
		return errors.New("step must set exactly one action")
	}
	ev := TraceEvent{Type: EventStep, Op: op, AtMS: h.elapsedMS(h.clock.Now())}

	switch op {
	case OpMutate:
		doc, err := h.session.ApplyMutation(*step.Mutate)
		ev.Error = errString(err)
		if err == nil {
			ev.Revision = doc.Revision
		}
	case OpSetLabel:
		doc, err := h.session.ApplyMutation(document.UpdateField(h.relabel(step.SetLabel)))
		ev.Error = errString(err)
		if err == nil {
			ev.Revision = doc.Revision
		}
	case OpAdvance:
		h.clock.Advance(time.Duration(*step.AdvanceMS) * time.Millisecond)
	case OpFailNext:
		if step.FailNext.Panic {
			h.gateway.PanicNext(step.FailNext.Count)
		} else {
			var failErr error
			if step.FailNext.Message != "" {
				failErr = errors.New(step.FailNext.Message)
			}
			h.gateway.FailNext(step.FailNext.Count, failErr)
		}
	case OpUndo, OpRedo:
		travel := h.session.Undo
		if op == OpRedo {
			travel = h.session.Redo
		}
		doc, ok, err := travel()
		ev.Error = errString(err)
		ev.Applied = &ok
		if ok {
			ev.Revision = doc.Revision
		}
	case OpSave:
		ev.Error = errString(h.session.SaveNow(ctx))
	case OpRetry:
		ev.Error = errString(h.session.Retry(ctx))
	case OpClose:
		ev.Error = errString(h.session.Close(ctx))
	case OpDiscard:
		ev.Error = errString(h.session.Close(ctx, session.WithDiscard()))
	}

	h.append(ev)
	for _, tr := range h.session.Events().Drain() {
		h.append(TraceEvent{
			Type:    EventTransition,
			AtMS:    h.elapsedMS(tr.At),
			From:    string(tr.From),
			To:      string(tr.To),
			Trigger: string(tr.Trigger),
			Reason:  tr.Reason,
		})
	}
	return nil
}

// relabel builds the replacement field for a set_label step. An unknown
// field yields a bare field so the session reports the rejection.
func (h *Harness) relabel(step *SetLabelStep) document.Field {
	doc := h.session.Document()
	if i := doc.FieldIndex(step.Field); i >= 0 {
		f := doc.Fields[i]
		f.Label = step.Label
		return f
	}
	return document.Field{ID: step.Field, Label: step.Label}
}

func (h *Harness) append(ev TraceEvent) {
	h.seq++
	ev.Seq = h.seq
	h.result.Trace = append(h.result.Trace, ev)
}

func (h *Harness) captureFinal() {
	for _, doc := range h.gateway.Saved() {
		ids := make([]string, len(doc.Fields))
		labels := make([]string, len(doc.Fields))
		for i, f := range doc.Fields {
			ids[i] = f.ID
			labels[i] = f.Label
		}
		h.result.Persists = append(h.result.Persists, PersistRecord{
			Revision: doc.Revision,
			AtMS:     h.elapsedMS(doc.PersistedAt),
			FieldIDs: ids,
			Labels:   labels,
		})
	}

	st := h.session.Status()
	final := FinalState{
		State:          string(st.State),
		Message:        st.Message,
		Pending:        st.Pending,
		Dirty:          st.Dirty,
		ValidationKeys: validation.Keys(h.session.ValidationErrors()),
	}
	if !st.SavedAt.IsZero() {
		ms := h.elapsedMS(st.SavedAt)
		final.SavedAtMS = &ms
	}
	h.result.Final = final
}

func (h *Harness) elapsedMS(t time.Time) int64 {
	return t.Sub(testutil.DefaultEpoch).Milliseconds()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
