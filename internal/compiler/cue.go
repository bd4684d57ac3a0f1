package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileQuery parses a CUE value into a QueryDoc.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the query struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`queries: done: { table: "projects", ... }`)
//	doc, err := CompileQuery(v.LookupPath(cue.ParsePath("queries.done")))
//
// The document name defaults to the last path label.
func CompileQuery(v cue.Value) (*QueryDoc, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := &QueryDoc{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		doc.Name = labels[len(labels)-1].String()
	}

	var err error
	if name, ok, err := optionalString(v, "name"); err != nil {
		return nil, err
	} else if ok {
		doc.Name = name
	}
	if doc.Table, _, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if doc.IDs, err = stringList(v, "ids"); err != nil {
		return nil, err
	}

	if whereVal := v.LookupPath(cue.ParsePath("where")); whereVal.Exists() {
		if doc.Where, err = parseConditions(whereVal, "where"); err != nil {
			return nil, err
		}
	}

	if eitherVal := v.LookupPath(cue.ParsePath("either")); eitherVal.Exists() {
		if doc.Either, err = parseEither(eitherVal); err != nil {
			return nil, err
		}
	}

	if doc.Mask, err = stringList(v, "mask"); err != nil {
		return nil, err
	}

	if sortVal := v.LookupPath(cue.ParsePath("sort")); sortVal.Exists() {
		if doc.Sort, err = parseSort(sortVal); err != nil {
			return nil, err
		}
	}

	if limitVal := v.LookupPath(cue.ParsePath("limit")); limitVal.Exists() {
		n, err := limitVal.Int64()
		if err != nil {
			return nil, &CompileError{Field: "limit", Message: "limit must be an integer", Pos: limitVal.Pos()}
		}
		limit := int(n)
		doc.Limit = &limit
	}

	return doc, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, &CompileError{Field: field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, true, nil
}

// stringList parses an optional list of strings. A missing field yields
// nil; an empty list yields an empty, non-nil slice.
func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: field + " must be a list of strings", Pos: fv.Pos()}
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: field + " must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

func parseConditions(v cue.Value, field string) ([]Condition, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "expected a list of conditions", Pos: v.Pos()}
	}
	var conds []Condition
	for iter.Next() {
		c, err := parseCondition(iter.Value(), field)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func parseCondition(v cue.Value, field string) (Condition, error) {
	var c Condition
	var err error

	column, ok, err := optionalString(v, "column")
	if err != nil {
		return c, err
	}
	if !ok {
		return c, &CompileError{Field: field + ".column", Message: "column is required", Pos: v.Pos()}
	}
	c.Column = column

	if c.Op, _, err = optionalString(v, "op"); err != nil {
		return c, err
	}

	if valueVal := v.LookupPath(cue.ParsePath("value")); valueVal.Exists() {
		if c.Value, err = parseScalar(valueVal, field+".value"); err != nil {
			return c, err
		}
	}

	if inVal := v.LookupPath(cue.ParsePath("in")); inVal.Exists() {
		iter, err := inVal.List()
		if err != nil {
			return c, &CompileError{Field: field + ".in", Message: "in must be a list", Pos: inVal.Pos()}
		}
		c.In = []any{}
		for iter.Next() {
			s, err := parseScalar(iter.Value(), field+".in")
			if err != nil {
				return c, err
			}
			c.In = append(c.In, s)
		}
	}
	return c, nil
}

// parseScalar reads a concrete string, integer or boolean.
func parseScalar(v cue.Value, field string) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.BoolKind:
		return v.Bool()
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: field, Message: "floats are not allowed", Pos: v.Pos()}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expected a concrete string, integer or boolean, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func parseEither(v cue.Value) ([]EitherDoc, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: "either", Message: "expected a list of groups", Pos: v.Pos()}
	}
	var groups []EitherDoc
	for iter.Next() {
		groupVal := iter.Value()
		branchesVal := groupVal.LookupPath(cue.ParsePath("branches"))
		if !branchesVal.Exists() {
			return nil, &CompileError{Field: "either.branches", Message: "branches is required", Pos: groupVal.Pos()}
		}
		branchIter, err := branchesVal.List()
		if err != nil {
			return nil, &CompileError{Field: "either.branches", Message: "expected a list of branches", Pos: branchesVal.Pos()}
		}
		group := EitherDoc{Branches: [][]Condition{}}
		for branchIter.Next() {
			conds, err := parseConditions(branchIter.Value(), "either.branches")
			if err != nil {
				return nil, err
			}
			group.Branches = append(group.Branches, conds)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func parseSort(v cue.Value) ([]SortDoc, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: "sort", Message: "expected a list of sort directives", Pos: v.Pos()}
	}
	var sorts []SortDoc
	for iter.Next() {
		item := iter.Value()
		column, ok, err := optionalString(item, "column")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CompileError{Field: "sort.column", Message: "column is required", Pos: item.Pos()}
		}
		direction, _, err := optionalString(item, "direction")
		if err != nil {
			return nil, err
		}
		sorts = append(sorts, SortDoc{Column: column, Direction: direction})
	}
	return sorts, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
