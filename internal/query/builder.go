package query

import (
	"errors"
	"fmt"
	"slices"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

// Either contributes one alternative of an OR-group. It receives a fresh
// child builder, adds comparisons to it and returns it.
type Either[I comparable, R any] func(*Builder[I, R]) *Builder[I, R]

// Builder accumulates the parts of a query for records of type R
// identified by values of type I.
//
// Builder is the only mutable type in this package. It is meant to be
// used from a single goroutine and thrown away (or reused) after Build.
//
// Accessors never fail loudly: an accessor that receives a bad argument
// records an error and leaves the builder state untouched. Recorded errors
// are visible through Err and returned by Build.
type Builder[I comparable, R any] struct {
	ids      IDParameter[I]
	params   []Comparison[R]
	children []*Predicate[R]
	mask     *fieldmaskpb.FieldMask
	sorting  []SortBy[R]
	limit    int
	hasLimit bool

	// branch marks child builders handed to Either branches; those may
	// only contribute column comparisons.
	branch bool
	errs   []error
}

// New returns an empty builder: no identifier filter, an empty AND root
// predicate, no mask, no sorting and no limit.
func New[I comparable, R any]() *Builder[I, R] {
	return &Builder[I, R]{}
}

// Err returns the argument errors recorded so far, joined, or nil.
func (b *Builder[I, R]) Err() error {
	return errors.Join(b.errs...)
}

func (b *Builder[I, R]) fail(err *QueryError) *Builder[I, R] {
	b.errs = append(b.errs, err)
	return b
}

// ID starts a clause on the identifier column.
func (b *Builder[I, R]) ID() *IDClause[*Builder[I, R], I] {
	return NewIDClause(b, b)
}

// Where starts a comparison clause on col. The terminal methods of the
// returned clause append to b and return it.
func Where[I comparable, R any, V any](b *Builder[I, R], col Column[R, V]) *Clause[*Builder[I, R], V] {
	return NewClause(b, b, col)
}

// Either appends a single OR-group to the root predicate. Every branch is
// evaluated against its own fresh child builder.
//
// A branch that contributes exactly one comparison adds it to the group's
// parameters. A branch contributing several comparisons is not merged into
// that parameter list: it is added to the group as one AND child, so the
// comparisons of a branch keep holding together. Only single-comparison
// branches are flattened into a plain union. Branches that contribute
// nothing are ignored.
//
// A branch must return the builder it was given (or nil). Returning any
// other builder is an argument error.
func (b *Builder[I, R]) Either(branches ...Either[I, R]) *Builder[I, R] {
	const op = "Either"
	if len(branches) == 0 {
		return b.fail(invalidArgument(op, "at least one branch is required"))
	}
	for i, branch := range branches {
		if branch == nil {
			return b.fail(nilArgument(op, fmt.Sprintf("branch %d", i)))
		}
	}

	group := &Predicate[R]{operator: Or}
	for i, branch := range branches {
		child := &Builder[I, R]{branch: true}
		if result := branch(child); result != nil && result != child {
			return b.fail(invalidArgument(op, "branch %d returned a builder other than its own", i))
		}
		if len(child.errs) > 0 {
			for _, err := range child.errs {
				b.errs = append(b.errs, fmt.Errorf("either branch %d: %w", i, err))
			}
			return b
		}

		contributed := child.predicate()
		switch {
		case contributed.IsEmpty():
			continue
		case len(contributed.parameters) == 1 && len(contributed.children) == 0:
			group.parameters = append(group.parameters, contributed.parameters[0])
		case contributed.operator == Or:
			group.parameters = append(group.parameters, contributed.parameters...)
			group.children = append(group.children, contributed.children...)
		default:
			group.children = append(group.children, contributed)
		}
	}

	if group.IsEmpty() {
		return b
	}
	b.children = append(b.children, group)
	return b
}

// WithMask sets the projection mask. The mask is copied; later changes to
// m do not affect the builder. Last call wins.
func (b *Builder[I, R]) WithMask(m *fieldmaskpb.FieldMask) *Builder[I, R] {
	const op = "WithMask"
	if b.branch {
		return b.fail(invalidArgument(op, "masks cannot be set inside an either branch"))
	}
	if m == nil {
		return b.fail(nilArgument(op, "field mask"))
	}
	return b.WithMaskPaths(m.GetPaths()...)
}

// WithMaskPaths sets the projection mask to the given dotted field paths,
// in order. Last call wins.
func (b *Builder[I, R]) WithMaskPaths(paths ...string) *Builder[I, R] {
	const op = "WithMask"
	if b.branch {
		return b.fail(invalidArgument(op, "masks cannot be set inside an either branch"))
	}
	for i, p := range paths {
		if p == "" {
			return b.fail(invalidArgument(op, "mask path %d is empty", i))
		}
	}
	b.mask = &fieldmaskpb.FieldMask{Paths: slices.Clone(paths)}
	if b.mask.Paths == nil {
		b.mask.Paths = []string{}
	}
	return b
}

// WithMaskColumns sets the projection mask to the names of cols.
func (b *Builder[I, R]) WithMaskColumns(cols ...AnyColumn[R]) *Builder[I, R] {
	paths := make([]string, len(cols))
	for i, col := range cols {
		if missingColumn(col) {
			return b.fail(nilArgument("WithMask", fmt.Sprintf("mask column %d", i)))
		}
		paths[i] = col.Name()
	}
	return b.WithMaskPaths(paths...)
}

// WithMaskDescriptors sets the projection mask to the names of the given
// protobuf fields.
func (b *Builder[I, R]) WithMaskDescriptors(fields ...protoreflect.FieldDescriptor) *Builder[I, R] {
	paths := make([]string, len(fields))
	for i, fd := range fields {
		if isNil(fd) {
			return b.fail(nilArgument("WithMask", fmt.Sprintf("field descriptor %d", i)))
		}
		paths[i] = string(fd.Name())
	}
	return b.WithMaskPaths(paths...)
}

// SortAscendingBy appends an ascending sort directive on col.
func (b *Builder[I, R]) SortAscendingBy(col AnyColumn[R]) *Builder[I, R] {
	return b.sortBy("SortAscendingBy", col, Ascending)
}

// SortDescendingBy appends a descending sort directive on col.
func (b *Builder[I, R]) SortDescendingBy(col AnyColumn[R]) *Builder[I, R] {
	return b.sortBy("SortDescendingBy", col, Descending)
}

// SortBy appends a sort directive. Directives accumulate in call order and
// are not deduplicated; later directives break ties of earlier ones.
func (b *Builder[I, R]) SortBy(col AnyColumn[R], dir Direction) *Builder[I, R] {
	if !dir.Valid() {
		return b.fail(invalidArgument("SortBy", "unknown direction %q", dir))
	}
	return b.sortBy("SortBy", col, dir)
}

func (b *Builder[I, R]) sortBy(op string, col AnyColumn[R], dir Direction) *Builder[I, R] {
	if b.branch {
		return b.fail(invalidArgument(op, "sorting cannot be set inside an either branch"))
	}
	if missingColumn(col) {
		return b.fail(nilArgument(op, "sort column"))
	}
	b.sorting = append(b.sorting, SortBy[R]{column: col, direction: dir})
	return b
}

// Limit caps the number of results. n must be positive. A limit is only
// accepted by Build together with at least one sort directive; the two may
// be set in either order.
func (b *Builder[I, R]) Limit(n int) *Builder[I, R] {
	const op = "Limit"
	if b.branch {
		return b.fail(invalidArgument(op, "limit cannot be set inside an either branch"))
	}
	if n <= 0 {
		return b.fail(invalidArgument(op, "limit must be positive, got %d", n))
	}
	b.limit = n
	b.hasLimit = true
	return b
}

// Build validates the accumulated state and returns an immutable Query.
//
// Build does not consume the builder: calling it again without changes
// yields an equal query, and later changes to the builder never affect
// queries it already returned.
func (b *Builder[I, R]) Build() (*Query[I, R], error) {
	if len(b.errs) > 0 {
		return nil, b.Err()
	}
	if b.hasLimit && len(b.sorting) == 0 {
		return nil, invalidState("Build", "limit %d requires at least one sort directive", b.limit)
	}

	q := &Query[I, R]{
		subject: Subject[I, R]{
			id:        IDParameter[I]{values: slices.Clone(b.ids.values)},
			predicate: b.predicate(),
		},
		sorting:  slices.Clone(b.sorting),
		limit:    b.limit,
		hasLimit: b.hasLimit,
	}
	if b.mask != nil {
		q.mask = proto.Clone(b.mask).(*fieldmaskpb.FieldMask)
	}
	return q, nil
}

// BuildThen builds the query and maps it with fn in the same call chain.
func BuildThen[I comparable, R any, T any](b *Builder[I, R], fn func(*Query[I, R]) T) (T, error) {
	var zero T
	if fn == nil {
		return zero, nilArgument("BuildThen", "mapping function")
	}
	q, err := b.Build()
	if err != nil {
		return zero, err
	}
	return fn(q), nil
}

// predicate freezes the current root AND-group.
func (b *Builder[I, R]) predicate() *Predicate[R] {
	return normalize(&Predicate[R]{
		operator:   And,
		parameters: slices.Clone(b.params),
		children:   slices.Clone(b.children),
	})
}

func (b *Builder[I, R]) setIDs(op string, values []I) *Builder[I, R] {
	if b.branch {
		return b.fail(invalidArgument(op, "identifier filters cannot be set inside an either branch"))
	}
	for i, v := range values {
		if isNil(v) {
			return b.fail(nilArgument(op, fmt.Sprintf("identifier %d", i)))
		}
	}
	b.ids = newIDParameter(values)
	return b
}

func (b *Builder[I, R]) compare(op string, col AnyColumn[R], operator ComparisonOperator, value any) *Builder[I, R] {
	if missingColumn(col) {
		return b.fail(nilArgument(op, "column"))
	}
	if isNil(value) {
		return b.fail(nilArgument(op, "value for column "+col.Name()))
	}
	b.params = append(b.params, Comparison[R]{column: col, operator: operator, value: value})
	return b
}

func (b *Builder[I, R]) compareAny(op string, col AnyColumn[R], values []any) *Builder[I, R] {
	if missingColumn(col) {
		return b.fail(nilArgument(op, "column"))
	}
	if len(values) == 0 {
		return b.fail(invalidArgument(op, "at least one value is required for column %s", col.Name()))
	}
	for i, v := range values {
		if isNil(v) {
			return b.fail(nilArgument(op, fmt.Sprintf("value %d for column %s", i, col.Name())))
		}
	}
	if len(values) == 1 {
		return b.compare(op, col, Equals, values[0])
	}
	group := &Predicate[R]{operator: Or, parameters: make([]Comparison[R], len(values))}
	for i, v := range values {
		group.parameters[i] = Comparison[R]{column: col, operator: Equals, value: v}
	}
	b.children = append(b.children, group)
	return b
}
