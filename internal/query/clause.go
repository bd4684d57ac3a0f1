package query

// Clause is a comparison started on one column. Its terminal methods append
// a comparison to the underlying builder and return the owner, which is the
// builder the clause was started from (or a generated wrapper around it).
type Clause[B any, V any] struct {
	owner   B
	compare func(op string, operator ComparisonOperator, value V)
	anyOf   func(values []V)
}

// NewClause binds a clause on col to target. owner is returned by every
// terminal method so that generated wrappers keep their fluent type.
// target must not be nil.
func NewClause[B any, I comparable, R any, V any](owner B, target *Builder[I, R], col Column[R, V]) *Clause[B, V] {
	var column AnyColumn[R] = col
	return &Clause[B, V]{
		owner: owner,
		compare: func(op string, operator ComparisonOperator, value V) {
			target.compare(op, column, operator, value)
		},
		anyOf: func(values []V) {
			erased := make([]any, len(values))
			for i, v := range values {
				erased[i] = v
			}
			target.compareAny("In", column, erased)
		},
	}
}

// Is requires the column to equal v.
func (c *Clause[B, V]) Is(v V) B {
	c.compare("Is", Equals, v)
	return c.owner
}

// IsNot requires the column to differ from v.
func (c *Clause[B, V]) IsNot(v V) B {
	c.compare("IsNot", NotEquals, v)
	return c.owner
}

// IsGreaterThan requires the column to be strictly greater than v.
func (c *Clause[B, V]) IsGreaterThan(v V) B {
	c.compare("IsGreaterThan", GreaterThan, v)
	return c.owner
}

// IsLessThan requires the column to be strictly less than v.
func (c *Clause[B, V]) IsLessThan(v V) B {
	c.compare("IsLessThan", LessThan, v)
	return c.owner
}

// IsGreaterOrEqualTo requires the column to be greater than or equal to v.
func (c *Clause[B, V]) IsGreaterOrEqualTo(v V) B {
	c.compare("IsGreaterOrEqualTo", GreaterOrEqual, v)
	return c.owner
}

// IsLessOrEqualTo requires the column to be less than or equal to v.
func (c *Clause[B, V]) IsLessOrEqualTo(v V) B {
	c.compare("IsLessOrEqualTo", LessOrEqual, v)
	return c.owner
}

// In requires the column to equal one of values. A single value is the
// same as Is; several values become one OR-group of equality comparisons.
func (c *Clause[B, V]) In(values ...V) B {
	c.anyOf(values)
	return c.owner
}

// IDClause is a clause on the identifier column. Identifiers are matched by
// membership only.
type IDClause[B any, I comparable] struct {
	owner B
	set   func(op string, values []I)
}

// NewIDClause binds an identifier clause to target. target must not be nil.
func NewIDClause[B any, I comparable, R any](owner B, target *Builder[I, R]) *IDClause[B, I] {
	return &IDClause[B, I]{
		owner: owner,
		set: func(op string, values []I) {
			target.setIDs(op, values)
		},
	}
}

// Is restricts the query to the single identifier id. It replaces any
// identifier filter set earlier.
func (c *IDClause[B, I]) Is(id I) B {
	c.set("ID.Is", []I{id})
	return c.owner
}

// In restricts the query to the given identifiers. Duplicates collapse.
// It replaces any identifier filter set earlier; calling it with no
// identifiers clears the filter.
func (c *IDClause[B, I]) In(ids ...I) B {
	c.set("ID.In", ids)
	return c.owner
}
