package query

import (
	"fmt"
	"slices"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

// Query is an immutable, validated entity query: a Subject plus an
// optional projection mask, ordered sort directives and an optional limit.
//
// Queries are only produced by Builder.Build. All accessors return copies,
// so a Query can be shared between goroutines without synchronization.
type Query[I comparable, R any] struct {
	subject  Subject[I, R]
	mask     *fieldmaskpb.FieldMask
	sorting  []SortBy[R]
	limit    int
	hasLimit bool
}

// Subject returns the identifier filter, root predicate and type tokens.
func (q *Query[I, R]) Subject() Subject[I, R] {
	return q.subject
}

// Mask returns a copy of the projection mask, or an empty mask when none
// was set. Use WhichMask to tell the two apart.
func (q *Query[I, R]) Mask() *fieldmaskpb.FieldMask {
	if q.mask == nil {
		return &fieldmaskpb.FieldMask{}
	}
	return proto.Clone(q.mask).(*fieldmaskpb.FieldMask)
}

// WhichMask returns the projection mask and whether one was set.
func (q *Query[I, R]) WhichMask() (*fieldmaskpb.FieldMask, bool) {
	if q.mask == nil {
		return nil, false
	}
	return q.Mask(), true
}

// HasMask reports whether a projection mask was set.
func (q *Query[I, R]) HasMask() bool {
	return q.mask != nil
}

// Sorting returns the sort directives in the order they were added.
func (q *Query[I, R]) Sorting() []SortBy[R] {
	return slices.Clone(q.sorting)
}

// WhichLimit returns the limit and whether one was set.
func (q *Query[I, R]) WhichLimit() (int, bool) {
	return q.limit, q.hasLimit
}

// HasLimit reports whether a limit was set.
func (q *Query[I, R]) HasLimit() bool {
	return q.hasLimit
}

// ToBuilder returns a new builder holding this query's contents. The
// builder is independent: changing it never affects q.
func (q *Query[I, R]) ToBuilder() *Builder[I, R] {
	b := &Builder[I, R]{
		ids:      IDParameter[I]{values: slices.Clone(q.subject.id.values)},
		sorting:  slices.Clone(q.sorting),
		limit:    q.limit,
		hasLimit: q.hasLimit,
	}
	root := q.subject.Predicate()
	switch {
	case root.IsEmpty():
	case root.operator == Or:
		// Build collapsed a lone OR-group into the root; restore it as a
		// child of the builder's AND root.
		b.children = []*Predicate[R]{root}
	default:
		b.params = slices.Clone(root.parameters)
		b.children = slices.Clone(root.children)
	}
	if q.mask != nil {
		b.mask = proto.Clone(q.mask).(*fieldmaskpb.FieldMask)
	}
	return b
}

// Equal reports structural equality of two queries.
func (q *Query[I, R]) Equal(other *Query[I, R]) bool {
	if q == nil || other == nil {
		return q == other
	}
	if !q.subject.Equal(other.subject) {
		return false
	}
	if (q.mask == nil) != (other.mask == nil) {
		return false
	}
	if q.mask != nil && !proto.Equal(q.mask, other.mask) {
		return false
	}
	if q.hasLimit != other.hasLimit || q.limit != other.limit {
		return false
	}
	return slices.EqualFunc(q.sorting, other.sorting, SortBy[R].Equal)
}

func (q *Query[I, R]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "query<%s>", q.subject.RecordType())
	if ids := q.subject.id.values; len(ids) > 0 {
		fmt.Fprintf(&sb, " id in %v", ids)
	}
	if root := q.subject.Predicate(); !root.IsEmpty() {
		fmt.Fprintf(&sb, " where %s", root)
	}
	if q.mask != nil {
		fmt.Fprintf(&sb, " mask %v", q.mask.GetPaths())
	}
	if len(q.sorting) > 0 {
		parts := make([]string, len(q.sorting))
		for i, s := range q.sorting {
			parts[i] = s.String()
		}
		fmt.Fprintf(&sb, " order by %s", strings.Join(parts, ", "))
	}
	if q.hasLimit {
		fmt.Fprintf(&sb, " limit %d", q.limit)
	}
	return sb.String()
}
