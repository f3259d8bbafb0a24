package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wasmbridge/internal/payload"
)

// TraceSnapshot is the part of a run compared against golden files.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
	Pending  int          `json:"pending"`
}

// Snapshot renders result as canonical JSON: sorted keys, no whitespace.
func Snapshot(name string, result *Result) ([]byte, error) {
	return payload.Canonical(TraceSnapshot{
		Scenario: name,
		Trace:    result.Trace,
		Pending:  result.Pending,
	})
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be executed. A trace mismatch
// fails t through goldie.
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

// AssertGolden compares an existing result against the golden file for
// name, without running anything.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
