package harness

// Trace event types.
const (
	EventStep       = "step"
	EventTransition = "transition"
)

// TraceEvent is one entry of a run's trace: either a scripted step or a
// status transition the session emitted while that step ran. Times are
// milliseconds since the fake clock's epoch.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`
	AtMS int64  `json:"at_ms"`

	// Step fields.
	Op       string `json:"op,omitempty"`
	Revision int64  `json:"revision,omitempty"`
	Applied  *bool  `json:"applied,omitempty"` // undo and redo only
	Error    string `json:"error,omitempty"`

	// Transition fields.
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Trigger string `json:"trigger,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// PersistRecord is one successful gateway write.
type PersistRecord struct {
	Revision int64    `json:"revision"`
	AtMS     int64    `json:"at_ms"`
	FieldIDs []string `json:"field_ids"`
	Labels   []string `json:"labels"`
}

// FinalState is the session state after the last step.
type FinalState struct {
	State          string   `json:"state"`
	Message        string   `json:"message,omitempty"`
	SavedAtMS      *int64   `json:"saved_at_ms,omitempty"`
	Pending        []string `json:"pending,omitempty"`
	Dirty          bool     `json:"dirty"`
	ValidationKeys []string `json:"validation_keys,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Trace contains steps and status transitions in order.
	Trace []TraceEvent `json:"trace"`

	// Persists lists the documents the gateway stored, oldest first.
	Persists []PersistRecord `json:"persists"`

	// Final is the state after the last step.
	Final FinalState `json:"final"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Persists: []PersistRecord{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// States returns the target state of every transition in the trace.
func (r *Result) States() []string {
	states := []string{}
	for _, ev := range r.Trace {
		if ev.Type == EventTransition {
			states = append(states, ev.To)
		}
	}
	return states
}
