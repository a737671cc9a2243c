// Package harness runs scripted editing sessions for conformance testing.
//
// A scenario drives one session through mutations, clock advances, gateway
// failures, undo, redo and explicit saves, then asserts on what the host
// would have observed.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	debounce_ms: 2000
//	document:               # or: definition: path/to/form.cue
//	  id: doc-1
//	  fields:
//	    - {id: f1, type: text, label: Name}
//	steps:
//	  - set_label: {field: f1, label: First}
//	  - advance_ms: 500
//	  - mutate: {kind: add_field, field: {type: email, label: Email}}
//	  - fail_next: {count: 1, message: "network down"}
//	  - undo: true
//	  - redo: true
//	  - save: true
//	  - retry: true
//	  - close: true
//	assertions:
//	  - type: status_sequence
//	    states: [unsaved, saving, saved]
//	  - type: persist_count
//	    count: 1
//	  - type: persisted_label
//	    field: f1
//	    label: First
//	  - type: validation_keys
//	    keys: [delivery]
//	  - type: final_status
//	    state: saved
//
// # Assertion Types
//
//   - status_sequence: the states entered, in order
//   - persist_count: number of successful gateway writes
//   - persisted_label: a field's label in the last persisted document
//   - validation_keys: keys of the final validation findings
//   - final_status: the final state and, optionally, its message
//
// # Deterministic Testing
//
// Every run uses a fresh testutil.FakeClock starting at
// testutil.DefaultEpoch, a testutil.RecordingGateway and sequential field
// IDs (field-1, field-2, ...). Timers only fire inside advance_ms steps,
// so traces are identical across runs and can be compared against golden
// files with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/debounce.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
