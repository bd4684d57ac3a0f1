// Package engine is the in-memory reference executor for queries built by
// internal/query.
//
// Execute interprets a Query over a slice of records:
//  1. identifier filter: keep records whose id is in the filter set, unless
//     the set is empty
//  2. predicate: AND nodes require every parameter and child to hold, OR
//     nodes require at least one; an empty node matches everything
//  3. sorting: stable multi-key sort, later directives break ties
//  4. limit
//  5. projection: protobuf messages and ir.IRObject records are reduced to
//     the masked fields; other record types are returned unchanged
//
// Comparisons follow SQL semantics for missing values: a nil or absent
// column value satisfies no comparison, NOT_EQUALS included. Missing values
// sort before present ones in ascending order.
//
// The executor is deterministic: for the same records in the same order it
// always returns the same result.
package engine
