package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/formsession/internal/document"
)

// TraceSnapshot captures everything observable about a scenario run.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string          `json:"scenario_name"`
	Trace        []TraceEvent    `json:"trace"`
	Persists     []PersistRecord `json:"persists"`
	Final        FinalState      `json:"final"`
}

// Snapshot builds the golden snapshot of a result.
func Snapshot(name string, r *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Trace:        r.Trace,
		Persists:     r.Persists,
		Final:        r.Final,
	}
}

// MarshalSnapshot returns the canonical JSON form of a snapshot.
func MarshalSnapshot(s TraceSnapshot) ([]byte, error) {
	return document.MarshalCanonical(s)
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
