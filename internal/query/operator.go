package query

import (
	"fmt"
	"strings"
)

// ComparisonOperator is the relation a Comparison asserts between a column
// value and a literal.
type ComparisonOperator string

const (
	Equals         ComparisonOperator = "EQUALS"
	NotEquals      ComparisonOperator = "NOT_EQUALS"
	GreaterThan    ComparisonOperator = "GREATER_THAN"
	LessThan       ComparisonOperator = "LESS_THAN"
	GreaterOrEqual ComparisonOperator = "GREATER_OR_EQUAL"
	LessOrEqual    ComparisonOperator = "LESS_OR_EQUAL"
)

var comparisonOperators = []ComparisonOperator{
	Equals, NotEquals, GreaterThan, LessThan, GreaterOrEqual, LessOrEqual,
}

// Valid reports whether op is one of the declared operators.
func (op ComparisonOperator) Valid() bool {
	for _, known := range comparisonOperators {
		if op == known {
			return true
		}
	}
	return false
}

// ParseComparisonOperator accepts the canonical names (case-insensitive)
// and the usual symbolic forms ("=", "!=", ">", "<", ">=", "<=").
func ParseComparisonOperator(s string) (ComparisonOperator, error) {
	switch strings.TrimSpace(s) {
	case "=", "==":
		return Equals, nil
	case "!=", "<>":
		return NotEquals, nil
	case ">":
		return GreaterThan, nil
	case "<":
		return LessThan, nil
	case ">=":
		return GreaterOrEqual, nil
	case "<=":
		return LessOrEqual, nil
	}
	op := ComparisonOperator(strings.ToUpper(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", fmt.Errorf("unknown comparison operator %q", s)
	}
	return op, nil
}

// LogicalOperator combines the parameters and children of a Predicate.
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// Valid reports whether op is AND or OR.
func (op LogicalOperator) Valid() bool {
	return op == And || op == Or
}

// Direction is the sort order of a SortBy directive.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// Valid reports whether d is ASC or DESC.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// ParseDirection accepts "asc"/"ascending" and "desc"/"descending" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC", "ASCENDING", "":
		return Ascending, nil
	case "DESC", "DESCENDING":
		return Descending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}
