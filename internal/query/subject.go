package query

import (
	"reflect"
	"slices"
)

// IDParameter is the identifier filter of a query: "id IN {values}".
// An empty parameter does not restrict the result.
type IDParameter[I comparable] struct {
	values []I
}

// newIDParameter collapses duplicates, keeping first-seen order.
func newIDParameter[I comparable](values []I) IDParameter[I] {
	seen := make(map[I]struct{}, len(values))
	unique := make([]I, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return IDParameter[I]{values: unique}
}

// Values returns the identifiers to match. Order is not significant.
func (p IDParameter[I]) Values() []I {
	return slices.Clone(p.values)
}

// IsEmpty reports whether no identifier filter was set.
func (p IDParameter[I]) IsEmpty() bool {
	return len(p.values) == 0
}

// Contains reports whether id is one of the filter values.
func (p IDParameter[I]) Contains(id I) bool {
	return slices.Contains(p.values, id)
}

// Equal compares both parameters as sets.
func (p IDParameter[I]) Equal(other IDParameter[I]) bool {
	if len(p.values) != len(other.values) {
		return false
	}
	for _, v := range p.values {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Subject is the filter half of a query: identifier filter, root predicate
// and the record/identifier type tokens used by executors for dispatch.
type Subject[I comparable, R any] struct {
	id        IDParameter[I]
	predicate *Predicate[R]
}

// ID returns the identifier filter.
func (s Subject[I, R]) ID() IDParameter[I] {
	return s.id
}

// Predicate returns the root predicate. It is never nil; a query without
// column comparisons has an empty AND root.
func (s Subject[I, R]) Predicate() *Predicate[R] {
	if s.predicate == nil {
		return &Predicate[R]{operator: And}
	}
	return s.predicate
}

// RecordType returns the type token of the queried records.
func (s Subject[I, R]) RecordType() reflect.Type {
	return reflect.TypeOf((*R)(nil)).Elem()
}

// IDType returns the type token of the record identifiers.
func (s Subject[I, R]) IDType() reflect.Type {
	return reflect.TypeOf((*I)(nil)).Elem()
}

// Equal reports structural equality of both subjects.
func (s Subject[I, R]) Equal(other Subject[I, R]) bool {
	return s.id.Equal(other.id) && s.Predicate().Equal(other.Predicate())
}

// SortBy orders results by a column in one direction.
type SortBy[R any] struct {
	column    AnyColumn[R]
	direction Direction
}

// Column returns the sort column.
func (s SortBy[R]) Column() AnyColumn[R] {
	return s.column
}

// ColumnName returns the sort column's field path.
func (s SortBy[R]) ColumnName() string {
	return s.column.Name()
}

// Direction returns the sort direction.
func (s SortBy[R]) Direction() Direction {
	return s.direction
}

// Equal reports whether both directives sort the same column the same way.
func (s SortBy[R]) Equal(other SortBy[R]) bool {
	return s.column.Name() == other.column.Name() && s.direction == other.direction
}

func (s SortBy[R]) String() string {
	return s.column.Name() + " " + string(s.direction)
}
