package compiler

import (
	"fmt"

	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyColumn       = "E101" // column name missing
	ErrUnknownOperator   = "E102" // unknown comparison operator
	ErrUnknownDirection  = "E103" // unknown sort direction
	ErrUnsupportedValue  = "E104" // value is not a string, integer or boolean
	ErrMissingValue      = "E105" // condition has neither value nor in
	ErrValueAndIn        = "E106" // condition has both value and in
	ErrLimitWithoutSort  = "E107" // limit requires at least one sort directive
	ErrNonPositiveLimit  = "E108" // limit must be positive
	ErrEmptyEither       = "E109" // either group without branches
	ErrEmptyMaskPath     = "E110" // empty mask path
	ErrOperatorWithIn    = "E111" // in combined with a non-equality operator
	ErrEmptyIn           = "E112" // in without values
	ErrDuplicateQueryKey = "E113" // two documents share a name
)

// ValidationError represents a query document validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateDoc checks a document without building it.
// Returns all errors found (does not fail-fast).
func ValidateDoc(doc *QueryDoc) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	for i, c := range doc.Where {
		errs = append(errs, validateCondition(fmt.Sprintf("where[%d]", i), c)...)
	}
	for i, group := range doc.Either {
		field := fmt.Sprintf("either[%d]", i)
		if len(group.Branches) == 0 {
			add(field, ErrEmptyEither, "at least one branch is required")
		}
		for j, branch := range group.Branches {
			for k, c := range branch {
				errs = append(errs, validateCondition(fmt.Sprintf("%s.branches[%d][%d]", field, j, k), c)...)
			}
		}
	}
	for i, p := range doc.Mask {
		if p == "" {
			add(fmt.Sprintf("mask[%d]", i), ErrEmptyMaskPath, "mask path is empty")
		}
	}
	for i, s := range doc.Sort {
		field := fmt.Sprintf("sort[%d]", i)
		if s.Column == "" {
			add(field, ErrEmptyColumn, "column is required")
		}
		if _, err := query.ParseDirection(s.Direction); err != nil {
			add(field, ErrUnknownDirection, "%v", err)
		}
	}
	if doc.Limit != nil {
		if *doc.Limit <= 0 {
			add("limit", ErrNonPositiveLimit, "limit must be positive, got %d", *doc.Limit)
		}
		if len(doc.Sort) == 0 {
			add("limit", ErrLimitWithoutSort, "limit requires at least one sort directive")
		}
	}
	return errs
}

func validateCondition(field string, c Condition) []ValidationError {
	var errs []ValidationError
	add := func(code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if c.Column == "" {
		add(ErrEmptyColumn, "column is required")
	}
	op, err := parseOp(c.Op)
	if err != nil {
		add(ErrUnknownOperator, "%v", err)
	}

	switch {
	case c.In != nil && c.Value != nil:
		add(ErrValueAndIn, "value and in are mutually exclusive")
	case c.In != nil:
		if err == nil && op != query.Equals {
			add(ErrOperatorWithIn, "in only supports equality, got %s", op)
		}
		if len(c.In) == 0 {
			add(ErrEmptyIn, "in requires at least one value")
		}
		for i, v := range c.In {
			if _, err := toValue(v); err != nil {
				add(ErrUnsupportedValue, "in[%d]: %v", i, err)
			}
		}
	case c.Value == nil:
		add(ErrMissingValue, "value is required")
	default:
		if _, err := toValue(c.Value); err != nil {
			add(ErrUnsupportedValue, "%v", err)
		}
	}
	return errs
}

func parseOp(op string) (query.ComparisonOperator, error) {
	if op == "" {
		return query.Equals, nil
	}
	return query.ParseComparisonOperator(op)
}

// toValue converts a decoded document value to a scalar ir value.
func toValue(v any) (ir.IRValue, error) {
	value, err := ir.FromGo(v)
	if err != nil {
		return nil, err
	}
	switch value.(type) {
	case ir.IRString, ir.IRInt, ir.IRBool:
		return value, nil
	}
	return nil, fmt.Errorf("unsupported value %v (%T): only strings, integers and booleans are allowed", v, v)
}
