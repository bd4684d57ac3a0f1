package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/entityq/internal/ir"
)

func sampleResult() *Result {
	r := NewResult()
	r.IDs = []string{"a", "b"}
	r.Records = []ir.IRObject{
		{"id": ir.IRString("a"), "n": ir.IRInt(1), "tags": ir.IRArray{ir.IRString("x")}},
		{"id": ir.IRString("b"), "n": ir.IRInt(2), "done": ir.IRBool(true)},
	}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	testCases := []struct {
		name      string
		assertion Assertion
		pass      bool
	}{
		{"ids match", Assertion{Type: AssertIDs, IDs: []string{"a", "b"}}, true},
		{"ids order", Assertion{Type: AssertIDs, IDs: []string{"b", "a"}}, false},
		{"count match", Assertion{Type: AssertCount, Count: 2}, true},
		{"count mismatch", Assertion{Type: AssertCount, Count: 0}, false},
		{"record subset", Assertion{Type: AssertRecord, ID: "b", Expect: map[string]any{"done": true}}, true},
		{"record array field", Assertion{Type: AssertRecord, ID: "a", Expect: map[string]any{"tags": []any{"x"}}}, true},
		{"record wrong value", Assertion{Type: AssertRecord, ID: "b", Expect: map[string]any{"n": 3}}, false},
		{"record missing field", Assertion{Type: AssertRecord, ID: "a", Expect: map[string]any{"done": true}}, false},
		{"record not in result", Assertion{Type: AssertRecord, ID: "z", Expect: map[string]any{}}, false},
		{"record exact", Assertion{Type: AssertRecord, ID: "b", Exact: true, Expect: map[string]any{"n": 2, "done": true}}, true},
		{"record exact extra field", Assertion{Type: AssertRecord, ID: "b", Exact: true, Expect: map[string]any{"n": 2}}, false},
		{"absent", Assertion{Type: AssertAbsent, IDs: []string{"c"}}, true},
		{"absent present", Assertion{Type: AssertAbsent, IDs: []string{"c", "a"}}, false},
		{"unknown type", Assertion{Type: "trace_order"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tc.assertion})
			if tc.pass {
				assert.Empty(t, errs)
			} else {
				assert.Len(t, errs, 1)
			}
		})
	}
}

func TestAssertionError_Message(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{{Type: AssertCount, Count: 5}})
	assert.Equal(t, []string{
		"assertions[0]: Assertion failed: count\n" +
			"  Expected: 5 records\n" +
			"  Actual: 2 records\n" +
			"  Result ids: [a b]\n",
	}, errs)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
