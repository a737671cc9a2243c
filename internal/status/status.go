// Package status implements the save-status state machine of a session.
//
// One State value replaces the separate saving / has-unsaved / error flags
// a host would otherwise track, so impossible combinations cannot arise.
// Every accepted trigger yields a Transition, self-loops included.
package status

import (
	"errors"
	"fmt"
	"time"
)

// State is the persistence status shown to the host.
type State string

const (
	Idle    State = "idle"
	Unsaved State = "unsaved"
	Saving  State = "saving"
	Saved   State = "saved"
	Error   State = "error"
)

// Trigger is an input to the machine.
type Trigger string

const (
	// TriggerMutation is an applied edit, undo or redo.
	TriggerMutation Trigger = "mutation"

	// TriggerFlush is the start of a persist attempt: a debounce fire,
	// an explicit save, a retry or a flush on close.
	TriggerFlush Trigger = "flush"

	// TriggerSuccess is a persist that left nothing pending.
	TriggerSuccess Trigger = "persist_success"

	// TriggerSuccessStale is a persist that succeeded while newer edits
	// arrived; those edits are still pending.
	TriggerSuccessStale Trigger = "persist_success_stale"

	// TriggerFailure is a failed persist.
	TriggerFailure Trigger = "persist_failure"
)

// table maps (from, trigger) to the next state.
var table = map[State]map[Trigger]State{
	Idle: {
		TriggerMutation: Unsaved,
	},
	Unsaved: {
		TriggerMutation: Unsaved,
		TriggerFlush:    Saving,
	},
	Saving: {
		TriggerMutation:     Saving,
		TriggerSuccess:      Saved,
		TriggerSuccessStale: Unsaved,
		TriggerFailure:      Error,
	},
	Saved: {
		TriggerMutation: Unsaved,
	},
	// A mutation in Error only re-arms the scheduler. The move to Saving
	// comes from the flush it triggers or from an explicit retry.
	Error: {
		TriggerMutation: Error,
		TriggerFlush:    Saving,
	},
}

// Transition records one accepted trigger.
type Transition struct {
	Seq     int64     `json:"seq" yaml:"seq"`
	From    State     `json:"from" yaml:"from"`
	To      State     `json:"to" yaml:"to"`
	Trigger Trigger   `json:"trigger" yaml:"trigger"`
	Reason  string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	At      time.Time `json:"at" yaml:"at"`
}

// Snapshot is the host-facing status. The machine fills State, Message and
// SavedAt; the session adds the pending set and dirty marker.
type Snapshot struct {
	State   State     `json:"state"`
	Message string    `json:"message,omitempty"`
	SavedAt time.Time `json:"saved_at"`
	Pending []string  `json:"pending,omitempty"`
	Dirty   bool      `json:"dirty"`
}

// ErrInvalidTransition is returned (wrapped) for a trigger the current
// state does not accept.
var ErrInvalidTransition = errors.New("invalid status transition")

// Machine is the state machine. Not safe for concurrent use; the session
// drives it under its own lock.
type Machine struct {
	state   State
	message string
	savedAt time.Time
	seq     int64
	now     func() time.Time
}

// New creates a machine in Idle.
func New(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{state: Idle, now: now}
}

// Fire applies trigger. reason is carried on the transition; for
// TriggerFailure it becomes the retained error message.
func (m *Machine) Fire(trigger Trigger, reason string) (Transition, error) {
	to, ok := table[m.state][trigger]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, trigger, m.state)
	}

	at := m.now()
	switch trigger {
	case TriggerFailure:
		m.message = reason
	case TriggerSuccess, TriggerSuccessStale:
		m.message = ""
		m.savedAt = at
	}

	m.seq++
	tr := Transition{
		Seq:     m.seq,
		From:    m.state,
		To:      to,
		Trigger: trigger,
		Reason:  reason,
		At:      at,
	}
	m.state = to
	return tr, nil
}

// Can reports whether trigger is accepted in the current state.
func (m *Machine) Can(trigger Trigger) bool {
	_, ok := table[m.state][trigger]
	return ok
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Message() string { return m.message }
func (m *Machine) SavedAt() time.Time { return m.savedAt }

// Snapshot returns the machine's part of the host-facing status.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:   m.state,
		Message: m.message,
		SavedAt: m.savedAt,
	}
}

// IsInvalidTransition reports whether err came from a rejected trigger.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
