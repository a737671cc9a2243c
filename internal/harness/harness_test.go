package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsession/internal/document"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

func TestGoldenTraces(t *testing.T) {
	for _, name := range []string{"debounce_coalescing", "failure_retry", "undo_redo"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "failure_retry.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(Snapshot(scenario.Name, first))
	require.NoError(t, err)
	b, err := MarshalSnapshot(Snapshot(scenario.Name, second))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_FailingAssertionsReported(t *testing.T) {
	scenario := inlineScenario(
		[]Step{
			{SetLabel: &SetLabelStep{Field: "f1", Label: "Edited"}},
			{AdvanceMS: ms(2000)},
		},
		[]Assertion{
			{Type: AssertPersistCount, Count: 2},
			{Type: AssertStatusSequence, States: []string{"unsaved", "saved"}},
			{Type: AssertPersistedLabel, Field: "f1", Label: "Other"},
			{Type: AssertPersistedLabel, Field: "nope", Label: "x"},
			{Type: AssertValidationKeys, Keys: []string{"fields"}},
			{Type: AssertFinalStatus, State: "error"},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "expected 2 persist(s), got 1")
	assert.Contains(t, result.Errors[1], `state 1: expected "saved", got "saving"`)
	assert.Contains(t, result.Errors[2], `expected label "Other", got "Edited"`)
	assert.Contains(t, result.Errors[3], "not in last persisted document")
}

func TestRun_RejectedMutationIsTraced(t *testing.T) {
	scenario := inlineScenario(
		[]Step{
			{SetLabel: &SetLabelStep{Field: "missing", Label: "x"}},
			{Mutate: &document.Mutation{Kind: document.KindReorderFields, From: 0, To: 5}},
		},
		[]Assertion{
			{Type: AssertPersistCount, Count: 0},
			{Type: AssertFinalStatus, State: "idle"},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.NotEmpty(t, result.Trace[0].Error)
	assert.NotEmpty(t, result.Trace[1].Error)
	assert.Empty(t, result.States())
}

func TestRun_GatewayPanicBecomesError(t *testing.T) {
	scenario := inlineScenario(
		[]Step{
			{FailNext: &FailStep{Count: 1, Panic: true}},
			{SetLabel: &SetLabelStep{Field: "f1", Label: "Edited"}},
			{Save: true},
		},
		[]Assertion{
			{Type: AssertStatusSequence, States: []string{"unsaved", "saving", "error"}},
			{Type: AssertFinalStatus, State: "error"},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)

	save := findStep(t, result, OpSave)
	assert.Contains(t, save.Error, "TRANSIENT_PERSIST")
	assert.Contains(t, result.Final.Message, "gateway panic")
	assert.True(t, result.Final.Dirty)
	assert.Equal(t, []string{"f1"}, result.Final.Pending)
}

func TestRun_DiscardDropsEdits(t *testing.T) {
	scenario := inlineScenario(
		[]Step{
			{SetLabel: &SetLabelStep{Field: "f1", Label: "Edited"}},
			{Discard: true},
			{AdvanceMS: ms(5000)},
			{Undo: true},
		},
		[]Assertion{
			{Type: AssertPersistCount, Count: 0},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)

	undo := result.Trace[len(result.Trace)-1]
	assert.Equal(t, OpUndo, undo.Op)
	assert.Equal(t, "session closed", undo.Error)
}

func TestRun_HistoryDepth(t *testing.T) {
	steps := make([]Step, 0, 8)
	for _, label := range []string{"a", "b", "c", "d"} {
		steps = append(steps, Step{SetLabel: &SetLabelStep{Field: "f1", Label: label}})
	}
	steps = append(steps, Step{Undo: true}, Step{Undo: true}, Step{Undo: true})

	scenario := inlineScenario(steps, []Assertion{{Type: AssertPersistCount, Count: 0}})
	scenario.HistoryDepth = 2

	result, err := Run(scenario)
	require.NoError(t, err)

	var applied []bool
	for _, ev := range result.Trace {
		if ev.Op == OpUndo {
			applied = append(applied, *ev.Applied)
		}
	}
	assert.Equal(t, []bool{true, true, false}, applied)
}

func TestRun_MissingDefinition(t *testing.T) {
	scenario := &Scenario{Name: "x", Definition: filepath.Join(t.TempDir(), "gone.cue")}
	_, err := Run(scenario)
	assert.Error(t, err)
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\ndocument: {id: a}\nsteps: [{save: true}]\nassertions: [{type: persist_count}]\n",
			want: "name is required",
		},
		{
			name: "no document",
			yaml: "name: n\ndescription: d\nsteps: [{save: true}]\nassertions: [{type: persist_count}]\n",
			want: "one of document or definition is required",
		},
		{
			name: "two actions in one step",
			yaml: "name: n\ndescription: d\ndocument: {id: a}\nsteps: [{save: true, undo: true}]\nassertions: [{type: persist_count}]\n",
			want: "exactly one action allowed",
		},
		{
			name: "empty step",
			yaml: "name: n\ndescription: d\ndocument: {id: a}\nsteps: [{}]\nassertions: [{type: persist_count}]\n",
			want: "no action set",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\ndocument: {id: a}\nsteps: [{save: true}]\nassertions: [{type: trace_order}]\n",
			want: `unknown assertion type "trace_order"`,
		},
		{
			name: "typo in key",
			yaml: "name: n\ndescription: d\ndocument: {id: a}\nsteps: [{save: true}]\nassertion: [{type: persist_count}]\n",
			want: "failed to parse YAML",
		},
		{
			name: "negative advance",
			yaml: "name: n\ndescription: d\ndocument: {id: a}\nsteps: [{advance_ms: -1}]\nassertions: [{type: persist_count}]\n",
			want: "advance_ms must be non-negative",
		},
		{
			name: "fail_next without count",
			yaml: "name: n\ndescription: d\ndocument: {id: a}\nsteps: [{fail_next: {message: x}}]\nassertions: [{type: persist_count}]\n",
			want: "fail_next.count must be positive",
		},
		{
			name: "final_status without state",
			yaml: "name: n\ndescription: d\ndocument: {id: a}\nsteps: [{save: true}]\nassertions: [{type: final_status}]\n",
			want: "state is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q does not contain %q", err, tt.want)
		})
	}
}

func TestLoadScenario_ResolvesDefinitionPath(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "close_flush.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "definitions", "contact.cue"), scenario.Definition)
}

func TestStep_Op(t *testing.T) {
	assert.Equal(t, OpSave, Step{Save: true}.Op())
	assert.Equal(t, OpAdvance, Step{AdvanceMS: ms(1)}.Op())
	assert.Equal(t, "", Step{}.Op())
	assert.Equal(t, "", Step{Undo: true, Redo: true}.Op())
}

func inlineScenario(steps []Step, assertions []Assertion) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Document: &document.Document{
			ID:     "doc-1",
			Fields: []document.Field{{ID: "f1", Type: document.FieldTypeText, Label: "Name"}},
		},
		Steps:      steps,
		Assertions: assertions,
	}
}

func findStep(t *testing.T, r *Result, op string) TraceEvent {
	t.Helper()
	for _, ev := range r.Trace {
		if ev.Type == EventStep && ev.Op == op {
			return ev
		}
	}
	t.Fatalf("no %s step in trace", op)
	return TraceEvent{}
}

func ms(n int64) *int64 {
	return &n
}
