package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formsession/internal/document"
)

// Scenario defines a scripted editing session.
// A scenario drives one session through a list of steps against a fake
// clock and a recording gateway, then asserts on the status transitions,
// what was persisted and the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the starting document, given inline.
	Document *document.Document `yaml:"document,omitempty"`

	// Definition is a path to a CUE or YAML definition file, used when
	// Document is not set. Relative paths resolve against the scenario file.
	Definition string `yaml:"definition,omitempty"`

	// DebounceMS overrides the debounce delay. Zero means the default.
	DebounceMS int64 `yaml:"debounce_ms,omitempty"`

	// HistoryDepth overrides the undo depth. Zero means the default.
	HistoryDepth int `yaml:"history_depth,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the result after all steps ran.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted action. Exactly one field must be set.
type Step struct {
	// Mutate applies an arbitrary mutation.
	Mutate *document.Mutation `yaml:"mutate,omitempty"`

	// SetLabel changes one field's label, keeping the rest of the field.
	SetLabel *SetLabelStep `yaml:"set_label,omitempty"`

	// AdvanceMS moves the fake clock forward, firing due timers.
	AdvanceMS *int64 `yaml:"advance_ms,omitempty"`

	// FailNext scripts gateway failures for the next calls.
	FailNext *FailStep `yaml:"fail_next,omitempty"`

	Undo    bool `yaml:"undo,omitempty"`
	Redo    bool `yaml:"redo,omitempty"`
	Save    bool `yaml:"save,omitempty"`
	Retry   bool `yaml:"retry,omitempty"`
	Close   bool `yaml:"close,omitempty"`
	Discard bool `yaml:"discard,omitempty"`
}

// SetLabelStep identifies a field and its new label.
type SetLabelStep struct {
	Field string `yaml:"field"`
	Label string `yaml:"label"`
}

// FailStep scripts gateway failures. With Panic set the gateway panics
// instead of returning Message.
type FailStep struct {
	Count   int    `yaml:"count"`
	Message string `yaml:"message,omitempty"`
	Panic   bool   `yaml:"panic,omitempty"`
}

// Step op names, as they appear in traces.
const (
	OpMutate   = "mutate"
	OpSetLabel = "set_label"
	OpAdvance  = "advance"
	OpFailNext = "fail_next"
	OpUndo     = "undo"
	OpRedo     = "redo"
	OpSave     = "save"
	OpRetry    = "retry"
	OpClose    = "close"
	OpDiscard  = "discard"
)

// ops returns the op names of every field set on the step.
func (s Step) ops() []string {
	var ops []string
	if s.Mutate != nil {
		ops = append(ops, OpMutate)
	}
	if s.SetLabel != nil {
		ops = append(ops, OpSetLabel)
	}
	if s.AdvanceMS != nil {
		ops = append(ops, OpAdvance)
	}
	if s.FailNext != nil {
		ops = append(ops, OpFailNext)
	}
	flags := []struct {
		set bool
		op  string
	}{
		{s.Undo, OpUndo},
		{s.Redo, OpRedo},
		{s.Save, OpSave},
		{s.Retry, OpRetry},
		{s.Close, OpClose},
		{s.Discard, OpDiscard},
	}
	for _, f := range flags {
		if f.set {
			ops = append(ops, f.op)
		}
	}
	return ops
}

// Op returns the step's op name, or "" if the step is not well formed.
func (s Step) Op() string {
	ops := s.ops()
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// Assertion validates the result of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "status_sequence": the states entered, in order
	// - "persist_count": number of successful gateway writes
	// - "persisted_label": label of a field in the last persisted document
	// - "validation_keys": keys of the final validation findings, in order
	// - "final_status": state (and optionally message) at the end
	Type string `yaml:"type"`

	// States is the expected sequence (status_sequence).
	States []string `yaml:"states,omitempty"`

	// Count is the expected number of writes (persist_count).
	Count int `yaml:"count,omitempty"`

	// Field and Label select and check a field (persisted_label).
	Field string `yaml:"field,omitempty"`
	Label string `yaml:"label,omitempty"`

	// Keys are the expected finding keys (validation_keys).
	// An empty list asserts there are no findings.
	Keys []string `yaml:"keys,omitempty"`

	// State and Message are the expected final status (final_status).
	State   string `yaml:"state,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertStatusSequence = "status_sequence"
	AssertPersistCount   = "persist_count"
	AssertPersistedLabel = "persisted_label"
	AssertValidationKeys = "validation_keys"
	AssertFinalStatus    = "final_status"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Definition path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Definition != "" && !filepath.IsAbs(scenario.Definition) {
		scenario.Definition = filepath.Join(filepath.Dir(path), scenario.Definition)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Document == nil && s.Definition == "":
		return fmt.Errorf("one of document or definition is required")
	case s.Document != nil && s.Definition != "":
		return fmt.Errorf("document and definition are mutually exclusive")
	}

	if s.Definition != "" {
		if _, err := os.Stat(s.Definition); os.IsNotExist(err) {
			return fmt.Errorf("definition file not found: %s", s.Definition)
		}
	}

	if s.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that exactly one action is set and its payload is sane.
func validateStep(index int, step Step) error {
	ops := step.ops()
	switch len(ops) {
	case 0:
		return fmt.Errorf("steps[%d]: no action set", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one action allowed, got %v", index, ops)
	}

	switch ops[0] {
	case OpMutate:
		if step.Mutate.Kind == "" {
			return fmt.Errorf("steps[%d]: mutate.kind is required", index)
		}
	case OpSetLabel:
		if step.SetLabel.Field == "" {
			return fmt.Errorf("steps[%d]: set_label.field is required", index)
		}
	case OpAdvance:
		if *step.AdvanceMS < 0 {
			return fmt.Errorf("steps[%d]: advance_ms must be non-negative", index)
		}
	case OpFailNext:
		if step.FailNext.Count <= 0 {
			return fmt.Errorf("steps[%d]: fail_next.count must be positive", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStatusSequence:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for status_sequence", index)
		}
	case AssertPersistCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for persist_count", index)
		}
	case AssertPersistedLabel:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for persisted_label", index)
		}
	case AssertValidationKeys:
	case AssertFinalStatus:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for final_status", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
