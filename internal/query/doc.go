// Package query builds typed, immutable entity queries.
//
// Calling code describes which entities to fetch: identifier filters,
// column comparisons combined with AND/OR, a projection mask, sort order
// and a result limit. Builder accumulates those parts and Build freezes
// them into an immutable, validated Query that a separate executor
// interprets (see internal/engine and internal/querysql).
//
// # Model
//
//	Query[I, R]
//	├── Subject[I, R]
//	│   ├── IDParameter[I]      id IN {v1, v2, ...}   (empty = no filter)
//	│   └── *Predicate[R]       root node, AND unless collapsed
//	│       ├── []Comparison[R] column OP value
//	│       └── []*Predicate[R] child groups
//	├── mask                    *fieldmaskpb.FieldMask (optional)
//	├── []SortBy[R]             applied in order, later keys break ties
//	└── limit                   optional, requires at least one SortBy
//
// # Building
//
// Plain comparisons join the root AND-group. Each Either call adds one
// OR-group:
//
//	status := query.NewColumn("status", func(p Project) string { return p.Status })
//	days := query.NewColumn("days_since_started", func(p Project) int { return p.Days })
//
//	b := query.New[string, Project]()
//	query.Where(b, status).Is("DONE")
//	b.Either(
//	    func(c *query.Builder[string, Project]) *query.Builder[string, Project] {
//	        return query.Where(c, days).IsLessThan(15)
//	    },
//	    func(c *query.Builder[string, Project]) *query.Builder[string, Project] {
//	        return query.Where(c, status).Is("URGENT")
//	    },
//	)
//	q, err := b.SortDescendingBy(days).Limit(10).Build()
//
// Generated per-type code wraps Builder and uses NewClause / NewIDClause so
// that clause terminals return the wrapper type; see internal/testutil for
// a hand-written example.
//
// # Errors
//
// Accessors record argument errors (nil columns, nil values, non-positive
// limits) without changing state; Build returns them. The only cross-field
// rule, "a limit needs a sort order", is checked by Build alone, so limit
// and sorting may be set in any order. Use IsArgumentError and
// IsStateError to classify.
package query
