package harness

import "github.com/roach88/entityq/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the backends agree and every assertion holds.
	Pass bool `json:"pass"`

	// IDs are the ids of the engine result, in result order.
	IDs []string `json:"ids"`

	// Records is the engine result.
	Records []ir.IRObject `json:"records"`

	// SQL and Params are the statement the store executed.
	SQL    string `json:"sql"`
	Params []any  `json:"params"`

	// Fingerprint is the content-addressed id of the query plan.
	Fingerprint string `json:"fingerprint"`

	// Errors lists parity and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		IDs:     []string{},
		Records: []ir.IRObject{},
		Params:  []any{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Record returns the result record with the given id.
func (r *Result) Record(id string) (ir.IRObject, bool) {
	for i, got := range r.IDs {
		if got == id {
			return r.Records[i], true
		}
	}
	return nil, false
}
