package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
)

// ObjectQuery is a query over ir.IRObject records keyed by string ids.
type ObjectQuery = query.Query[string, ir.IRObject]

// Build validates doc and compiles it into a query.
func Build(doc *QueryDoc) (*ObjectQuery, error) {
	if doc == nil {
		return nil, errors.New("nil query document")
	}
	if errs := ValidateDoc(doc); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, errors.Join(joined...)
	}

	b := query.New[string, ir.IRObject]()
	if len(doc.IDs) > 0 {
		b.ID().In(doc.IDs...)
	}
	for _, c := range doc.Where {
		if err := applyCondition(b, c); err != nil {
			return nil, err
		}
	}
	for i, group := range doc.Either {
		i := i
		var branchErr error
		branches := make([]query.Either[string, ir.IRObject], len(group.Branches))
		for j, conds := range group.Branches {
			j, conds := j, conds
			branches[j] = func(child *query.Builder[string, ir.IRObject]) *query.Builder[string, ir.IRObject] {
				for _, c := range conds {
					if err := applyCondition(child, c); err != nil && branchErr == nil {
						branchErr = fmt.Errorf("either[%d].branches[%d]: %w", i, j, err)
					}
				}
				return child
			}
		}
		b.Either(branches...)
		if branchErr != nil {
			return nil, branchErr
		}
	}
	if doc.Mask != nil {
		b.WithMaskPaths(doc.Mask...)
	}
	for _, s := range doc.Sort {
		dir, err := query.ParseDirection(s.Direction)
		if err != nil {
			return nil, err
		}
		b.SortBy(ObjectColumn(s.Column), dir)
	}
	if doc.Limit != nil {
		b.Limit(*doc.Limit)
	}
	return b.Build()
}

func applyCondition(b *query.Builder[string, ir.IRObject], c Condition) error {
	op, err := parseOp(c.Op)
	if err != nil {
		return err
	}
	col := ObjectColumn(c.Column)

	if c.In != nil {
		values := make([]ir.IRValue, len(c.In))
		for i, v := range c.In {
			if values[i], err = toValue(v); err != nil {
				return fmt.Errorf("column %s: %w", c.Column, err)
			}
		}
		query.Where(b, col).In(values...)
		return nil
	}

	value, err := toValue(c.Value)
	if err != nil {
		return fmt.Errorf("column %s: %w", c.Column, err)
	}
	clause := query.Where(b, col)
	switch op {
	case query.Equals:
		clause.Is(value)
	case query.NotEquals:
		clause.IsNot(value)
	case query.GreaterThan:
		clause.IsGreaterThan(value)
	case query.LessThan:
		clause.IsLessThan(value)
	case query.GreaterOrEqual:
		clause.IsGreaterOrEqualTo(value)
	case query.LessOrEqual:
		clause.IsLessOrEqualTo(value)
	}
	return nil
}
