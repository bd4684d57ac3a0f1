package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/entityq/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the result ids to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	IDs      []string // Result ids for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "  Result ids: %v\n", e.IDs)
	return buf.String()
}

// EvaluateAssertions runs all assertions against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertIDs:
		return assertIDs(result, a)
	case AssertCount:
		return assertCount(result, a)
	case AssertRecord:
		return assertRecord(result, a)
	case AssertAbsent:
		return assertAbsent(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertIDs(result *Result, a Assertion) error {
	if slices.Equal(result.IDs, a.IDs) {
		return nil
	}
	return &AssertionError{
		Type:     AssertIDs,
		Expected: fmt.Sprintf("%v", a.IDs),
		Actual:   fmt.Sprintf("%v", result.IDs),
		IDs:      result.IDs,
	}
}

func assertCount(result *Result, a Assertion) error {
	if len(result.IDs) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Expected: fmt.Sprintf("%d records", a.Count),
		Actual:   fmt.Sprintf("%d records", len(result.IDs)),
		IDs:      result.IDs,
	}
}

func assertRecord(result *Result, a Assertion) error {
	rec, ok := result.Record(a.ID)
	if !ok {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %s in result", a.ID),
			Actual:   "not found",
			IDs:      result.IDs,
		}
	}

	expected, err := ir.FromGo(a.Expect)
	if err != nil {
		return fmt.Errorf("record %s: expect: %w", a.ID, err)
	}
	want, ok := expected.(ir.IRObject)
	if !ok {
		return fmt.Errorf("record %s: expect must be a map", a.ID)
	}

	if a.Exact {
		got := make(ir.IRObject, len(rec))
		for k, v := range rec {
			if k != "id" {
				got[k] = v
			}
		}
		if reflect.DeepEqual(got, want) {
			return nil
		}
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %s = %v", a.ID, want),
			Actual:   fmt.Sprintf("%v", got),
			IDs:      result.IDs,
		}
	}

	// Subset match: iterate in sorted order for a deterministic message.
	for _, key := range want.SortedKeys() {
		actual, exists := rec[key]
		if !exists {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("record %s field %s = %v", a.ID, key, want[key]),
				Actual:   "field missing",
				IDs:      result.IDs,
			}
		}
		if !reflect.DeepEqual(actual, want[key]) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("record %s field %s = %v", a.ID, key, want[key]),
				Actual:   fmt.Sprintf("%v", actual),
				IDs:      result.IDs,
			}
		}
	}
	return nil
}

func assertAbsent(result *Result, a Assertion) error {
	for _, id := range a.IDs {
		if slices.Contains(result.IDs, id) {
			return &AssertionError{
				Type:     AssertAbsent,
				Expected: fmt.Sprintf("record %s not in result", id),
				Actual:   "present",
				IDs:      result.IDs,
			}
		}
	}
	return nil
}
