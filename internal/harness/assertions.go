package harness

import (
	"fmt"
	"slices"
)

// checkAssertions evaluates every assertion against r, recording failures.
func checkAssertions(r *Result, assertions []Assertion) {
	for i, a := range assertions {
		if err := checkAssertion(r, a); err != nil {
			r.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
}

func checkAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case AssertStatusSequence:
		return assertStatusSequence(r, a.States)
	case AssertPersistCount:
		if got := len(r.Persists); got != a.Count {
			return fmt.Errorf("expected %d persist(s), got %d", a.Count, got)
		}
		return nil
	case AssertPersistedLabel:
		return assertPersistedLabel(r, a.Field, a.Label)
	case AssertValidationKeys:
		got := r.Final.ValidationKeys
		if len(got) == 0 && len(a.Keys) == 0 {
			return nil
		}
		if !slices.Equal(got, a.Keys) {
			return fmt.Errorf("expected validation keys %v, got %v", a.Keys, got)
		}
		return nil
	case AssertFinalStatus:
		if r.Final.State != a.State {
			return fmt.Errorf("expected final state %q, got %q", a.State, r.Final.State)
		}
		if a.Message != "" && r.Final.Message != a.Message {
			return fmt.Errorf("expected message %q, got %q", a.Message, r.Final.Message)
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertStatusSequence(r *Result, want []string) error {
	got := r.States()
	if slices.Equal(got, want) {
		return nil
	}
	for i := range min(len(got), len(want)) {
		if got[i] != want[i] {
			return fmt.Errorf("state %d: expected %q, got %q (full sequence %v)", i, want[i], got[i], got)
		}
	}
	return fmt.Errorf("expected %d state(s), got %d: %v", len(want), len(got), got)
}

// assertPersistedLabel checks a field's label in the last persisted document.
func assertPersistedLabel(r *Result, field, label string) error {
	if len(r.Persists) == 0 {
		return fmt.Errorf("nothing was persisted")
	}
	last := r.Persists[len(r.Persists)-1]
	for i, id := range last.FieldIDs {
		if id == field {
			if last.Labels[i] != label {
				return fmt.Errorf("field %s: expected label %q, got %q", field, label, last.Labels[i])
			}
			return nil
		}
	}
	return fmt.Errorf("field %s not in last persisted document", field)
}
