package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// GoldenFixtureDir is where golden files live, relative to the test's
// package directory.
const GoldenFixtureDir = "testdata/golden"

// GoldenBytes renders the canonical JSON snapshot of a result: scenario
// name, stats, rejection codes and operations in their wire shape.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	ops := make(snapshot.Array, len(result.Operations))
	for i, op := range result.Operations {
		ops[i] = snapshot.NewObject(
			snapshot.F("action", snapshot.String(op.Action)),
			snapshot.F("body", op.Body()),
		)
	}

	stats := make(snapshot.Object)
	for name, n := range statsMap(result.Stats) {
		stats[name] = snapshot.Int(int64(n))
	}

	rejections := make(snapshot.Array, len(result.Rejections))
	for i, code := range result.Rejections {
		rejections[i] = snapshot.String(code)
	}

	return snapshot.MarshalCanonical(snapshot.NewObject(
		snapshot.F("scenario", snapshot.String(scenarioName)),
		snapshot.F("stats", stats),
		snapshot.F("rejections", rejections),
		snapshot.F("operations", ops),
	))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check result.Pass. Returns error
// if scenario execution fails; a golden mismatch fails t via goldie.
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

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenFixtureDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
