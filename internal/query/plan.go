package query

import (
	"fmt"

	"github.com/roach88/entityq/internal/ir"
)

// Plan is the type-erased snapshot of a Query handed to executors that do
// not know R and I: the SQL backend, the CLI and fingerprinting.
type Plan struct {
	RecordType string        `json:"record_type"`
	IDType     string        `json:"id_type"`
	IDs        []any         `json:"ids,omitempty"`
	Filter     PlanPredicate `json:"filter"`
	Mask       []string      `json:"mask,omitempty"`
	MaskSet    bool          `json:"mask_set"`
	Sort       []PlanSort    `json:"sort,omitempty"`
	Limit      int           `json:"limit,omitempty"`
	LimitSet   bool          `json:"limit_set"`
}

// PlanPredicate mirrors Predicate.
type PlanPredicate struct {
	Operator   LogicalOperator  `json:"operator"`
	Parameters []PlanComparison `json:"parameters,omitempty"`
	Children   []PlanPredicate  `json:"children,omitempty"`
}

// PlanComparison mirrors Comparison.
type PlanComparison struct {
	Column   string             `json:"column"`
	Operator ComparisonOperator `json:"operator"`
	Value    any                `json:"value"`
}

// PlanSort mirrors SortBy.
type PlanSort struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// Plan returns the type-erased snapshot of q.
func (q *Query[I, R]) Plan() Plan {
	p := Plan{
		RecordType: q.subject.RecordType().String(),
		IDType:     q.subject.IDType().String(),
		Filter:     planPredicate(q.subject.Predicate()),
		MaskSet:    q.mask != nil,
		Limit:      q.limit,
		LimitSet:   q.hasLimit,
	}
	for _, id := range q.subject.id.values {
		p.IDs = append(p.IDs, id)
	}
	if q.mask != nil {
		p.Mask = append([]string{}, q.mask.GetPaths()...)
	}
	for _, s := range q.sorting {
		p.Sort = append(p.Sort, PlanSort{Column: s.ColumnName(), Direction: s.direction})
	}
	return p
}

func planPredicate[R any](p *Predicate[R]) PlanPredicate {
	out := PlanPredicate{Operator: p.Operator()}
	for _, c := range p.parameters {
		out.Parameters = append(out.Parameters, PlanComparison{
			Column:   c.ColumnName(),
			Operator: c.operator,
			Value:    c.value,
		})
	}
	for _, child := range p.children {
		out.Children = append(out.Children, planPredicate(child))
	}
	return out
}

// Columns returns every column name referenced by the filter, mask and
// sort directives, in first-seen order.
func (p Plan) Columns() []string {
	seen := map[string]bool{}
	var cols []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			cols = append(cols, name)
		}
	}
	var walk func(PlanPredicate)
	walk = func(pp PlanPredicate) {
		for _, c := range pp.Parameters {
			add(c.Column)
		}
		for _, child := range pp.Children {
			walk(child)
		}
	}
	walk(p.Filter)
	for _, m := range p.Mask {
		add(m)
	}
	for _, s := range p.Sort {
		add(s.Column)
	}
	return cols
}

// Canonical converts the plan to an ir.IRObject. It fails if a literal
// cannot be represented in IR (floats, for instance).
func (p Plan) Canonical() (ir.IRObject, error) {
	filter, err := p.Filter.canonical()
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	obj := ir.IRObject{
		"record_type": ir.IRString(p.RecordType),
		"id_type":     ir.IRString(p.IDType),
		"filter":      filter,
	}
	if len(p.IDs) > 0 {
		ids, err := ir.FromGo(p.IDs)
		if err != nil {
			return nil, fmt.Errorf("ids: %w", err)
		}
		obj["ids"] = ids
	}
	if p.MaskSet {
		mask := make(ir.IRArray, len(p.Mask))
		for i, m := range p.Mask {
			mask[i] = ir.IRString(m)
		}
		obj["mask"] = mask
	}
	if len(p.Sort) > 0 {
		sorts := make(ir.IRArray, len(p.Sort))
		for i, s := range p.Sort {
			sorts[i] = ir.IRObject{
				"column":    ir.IRString(s.Column),
				"direction": ir.IRString(s.Direction),
			}
		}
		obj["sort"] = sorts
	}
	if p.LimitSet {
		obj["limit"] = ir.IRInt(p.Limit)
	}
	return obj, nil
}

func (pp PlanPredicate) canonical() (ir.IRObject, error) {
	obj := ir.IRObject{"operator": ir.IRString(pp.Operator)}
	if len(pp.Parameters) > 0 {
		params := make(ir.IRArray, len(pp.Parameters))
		for i, c := range pp.Parameters {
			v, err := ir.FromGo(c.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", c.Column, err)
			}
			params[i] = ir.IRObject{
				"column":   ir.IRString(c.Column),
				"operator": ir.IRString(c.Operator),
				"value":    v,
			}
		}
		obj["parameters"] = params
	}
	if len(pp.Children) > 0 {
		children := make(ir.IRArray, len(pp.Children))
		for i, child := range pp.Children {
			c, err := child.canonical()
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		obj["children"] = children
	}
	return obj, nil
}

// Fingerprint returns the content-addressed identifier of the plan. Two
// plans with equal contents in the same order share a fingerprint.
func (p Plan) Fingerprint() (string, error) {
	obj, err := p.Canonical()
	if err != nil {
		return "", err
	}
	return ir.QueryID(obj)
}
