package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/entityq/internal/ir"
)

// Snapshot captures what a scenario compiled to and returned.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string   `json:"scenario_name"`
	SQL          string   `json:"sql"`
	Params       []any    `json:"params"`
	IDs          []string `json:"ids"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	params := s.Params
	if params == nil {
		params = []any{}
	}
	ids := s.IDs
	if ids == nil {
		ids = []string{}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"sql":           s.SQL,
		"params":        params,
		"ids":           ids,
	}
}

// SnapshotJSON returns the canonical JSON snapshot of a result, the
// content of its golden file.
func SnapshotJSON(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		SQL:          result.SQL,
		Params:       result.Params,
		IDs:          result.IDs,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
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

	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
