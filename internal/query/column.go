package query

import (
	"fmt"
	"reflect"
)

// AnyColumn is the type-erased view of a column of record type R.
//
// Comparisons, sort directives and masks hold columns through this
// interface so that columns of different value types can share a slice.
type AnyColumn[R any] interface {
	// Name is the field path of the column (e.g. "status").
	Name() string

	// Extract reads the column value from a record.
	Extract(record R) any
}

// Column is a typed reference to one field of record type R holding values
// of type V. Generated per-type accessors expose one Column per field.
type Column[R any, V any] struct {
	name string
	get  func(R) V
}

// NewColumn creates a column named name whose value is read with get.
func NewColumn[R any, V any](name string, get func(R) V) Column[R, V] {
	return Column[R, V]{name: name, get: get}
}

// Name returns the field path of the column.
func (c Column[R, V]) Name() string {
	return c.name
}

// Get reads the typed column value from record.
func (c Column[R, V]) Get(record R) V {
	var zero V
	if c.get == nil {
		return zero
	}
	return c.get(record)
}

// Extract implements AnyColumn.
func (c Column[R, V]) Extract(record R) any {
	return c.Get(record)
}

// IsZero reports whether c was never initialized.
func (c Column[R, V]) IsZero() bool {
	return c.name == "" || c.get == nil
}

func (c Column[R, V]) String() string {
	return c.name
}

// Comparison is a single column-comparison leaf of a Predicate:
// <column> <operator> <value>. It is immutable once created.
type Comparison[R any] struct {
	column   AnyColumn[R]
	operator ComparisonOperator
	value    any
}

// Column returns the compared column.
func (c Comparison[R]) Column() AnyColumn[R] {
	return c.column
}

// ColumnName returns the compared column's field path.
func (c Comparison[R]) ColumnName() string {
	return c.column.Name()
}

// Operator returns the comparison operator.
func (c Comparison[R]) Operator() ComparisonOperator {
	return c.operator
}

// Value returns the literal the column is compared to.
func (c Comparison[R]) Value() any {
	return c.value
}

func (c Comparison[R]) String() string {
	return fmt.Sprintf("%s %s %v", c.column.Name(), c.operator, c.value)
}

// Equal reports whether both comparisons reference the same column with the
// same operator and an equal value.
func (c Comparison[R]) Equal(other Comparison[R]) bool {
	return c.column.Name() == other.column.Name() &&
		c.operator == other.operator &&
		reflect.DeepEqual(c.value, other.value)
}

type zeroer interface {
	IsZero() bool
}

// missingColumn reports whether col cannot be used as a column reference.
func missingColumn[R any](col AnyColumn[R]) bool {
	if isNil(col) {
		return true
	}
	if z, ok := col.(zeroer); ok && z.IsZero() {
		return true
	}
	return col.Name() == ""
}

// isNil reports whether v is nil or a typed nil pointer, map, slice, func,
// channel or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
