package harness

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// ExpectationError is returned when an expect clause does not match.
type ExpectationError struct {
	Clause string // expect clause, e.g. "operations"
	Diff   string // cmp.Diff output (-want +got)
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("Expectation failed: %s (-want +got):\n%s", e.Clause, e.Diff)
}

// EvaluateExpectations checks result against every expect clause of the
// scenario. Returns one message per mismatch.
func EvaluateExpectations(scenario *Scenario, result *Result) []string {
	var errs []string

	errs = append(errs, checkStats(scenario.Expect.Stats, result.Stats)...)

	if scenario.Expect.Rejections != nil {
		if err := compare("rejections", scenario.Expect.Rejections, result.Rejections); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if scenario.Expect.Operations != nil {
		want, err := expectedOperations(scenario.Expect.Operations)
		if err != nil {
			errs = append(errs, err.Error())
		} else if err := compare("operations", want, result.Operations); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if scenario.Replica != nil {
		want := make([]snapshot.Object, 0, len(scenario.Replica.Expect))
		for i, body := range scenario.Replica.Expect {
			obj, err := toObject(body)
			if err != nil {
				errs = append(errs, fmt.Sprintf("replica.expect[%d]: %v", i, err))
				continue
			}
			want = append(want, obj)
		}
		if err := compare("replica", want, result.Replica); err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func compare(clause string, want, got any) error {
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		return &ExpectationError{Clause: clause, Diff: diff}
	}
	return nil
}

// checkStats is a subset match on the stats' JSON field names.
func checkStats(expected map[string]int, stats reconcile.Stats) []string {
	if len(expected) == 0 {
		return nil
	}
	actual := statsMap(stats)

	var errs []string
	for _, name := range slices.Sorted(maps.Keys(expected)) {
		got, ok := actual[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("stats: unknown stat %q", name))
			continue
		}
		if got != expected[name] {
			errs = append(errs, fmt.Sprintf("stats.%s: expected %d, got %d", name, expected[name], got))
		}
	}
	return errs
}

// statsMap keys the stats by their JSON field names.
func statsMap(stats reconcile.Stats) map[string]int {
	data, _ := json.Marshal(stats)
	out := make(map[string]int)
	_ = json.Unmarshal(data, &out)
	return out
}

func expectedOperations(expected []ExpectedOperation) ([]reconcile.Operation, error) {
	ops := make([]reconcile.Operation, len(expected))
	for i, e := range expected {
		fields, err := toObject(e.Body)
		if err != nil {
			return nil, fmt.Errorf("expect.operations[%d]: %w", i, err)
		}
		id, _ := fields[reconcile.ObjectIDField].(snapshot.String)
		delete(fields, reconcile.ObjectIDField)
		ops[i] = reconcile.Operation{
			Action:   reconcile.Action(e.Action),
			ObjectID: string(id),
			Fields:   fields,
		}
	}
	return ops, nil
}
