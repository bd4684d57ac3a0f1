package query

import (
	"strings"
)

// Predicate is one node of a two-level logical tree over records of type R.
//
// A node combines its direct comparison parameters and its child nodes with
// a single LogicalOperator. A node with no parameters and no children
// matches every record.
//
// Predicates are only created by Builder and never change afterwards, so
// they may be shared freely between goroutines.
type Predicate[R any] struct {
	operator   LogicalOperator
	parameters []Comparison[R]
	children   []*Predicate[R]
}

// Operator returns how parameters and children are combined.
func (p *Predicate[R]) Operator() LogicalOperator {
	if p == nil {
		return And
	}
	return p.operator
}

// Parameters returns the comparisons that belong directly to this node.
func (p *Predicate[R]) Parameters() []Comparison[R] {
	if p == nil {
		return nil
	}
	return append([]Comparison[R](nil), p.parameters...)
}

// Children returns the direct child nodes.
func (p *Predicate[R]) Children() []*Predicate[R] {
	if p == nil {
		return nil
	}
	return append([]*Predicate[R](nil), p.children...)
}

// AllParams returns every comparison of this node and its descendants,
// depth-first, parents before children.
func (p *Predicate[R]) AllParams() []Comparison[R] {
	if p == nil {
		return nil
	}
	all := append([]Comparison[R](nil), p.parameters...)
	for _, child := range p.children {
		all = append(all, child.AllParams()...)
	}
	return all
}

// IsEmpty reports whether the node has neither parameters nor children.
func (p *Predicate[R]) IsEmpty() bool {
	return p == nil || (len(p.parameters) == 0 && len(p.children) == 0)
}

// Equal reports structural equality: same operator, the same direct
// parameters regardless of order, and pairwise equal children.
func (p *Predicate[R]) Equal(other *Predicate[R]) bool {
	if p.IsEmpty() && other.IsEmpty() {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	if p.operator != other.operator {
		return false
	}
	if !sameComparisons(p.parameters, other.parameters) {
		return false
	}
	if len(p.children) != len(other.children) {
		return false
	}
	for i := range p.children {
		if !p.children[i].Equal(other.children[i]) {
			return false
		}
	}
	return true
}

// String renders the node in a compact infix form, e.g.
// "(status EQUALS DONE AND (assignee EQUALS ann OR assignee EQUALS bob))".
func (p *Predicate[R]) String() string {
	if p.IsEmpty() {
		return "()"
	}
	parts := make([]string, 0, len(p.parameters)+len(p.children))
	for _, param := range p.parameters {
		parts = append(parts, param.String())
	}
	for _, child := range p.children {
		parts = append(parts, child.String())
	}
	return "(" + strings.Join(parts, " "+string(p.operator)+" ") + ")"
}

// sameComparisons compares two parameter lists as multisets.
func sameComparisons[R any](a, b []Comparison[R]) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ca := range a {
		found := false
		for j, cb := range b {
			if !used[j] && ca.Equal(cb) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalize collapses a parameterless node with a single child into that
// child. Such a node is equivalent to its child under either operator.
func normalize[R any](p *Predicate[R]) *Predicate[R] {
	for p != nil && len(p.parameters) == 0 && len(p.children) == 1 {
		p = p.children[0]
	}
	return p
}
