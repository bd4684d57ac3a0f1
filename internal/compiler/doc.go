// Package compiler turns declarative query documents into queries over
// ir.IRObject records.
//
// A document can be written in CUE or YAML:
//
//	queries: recent_done: {
//		table: "projects"
//		where: [{column: "status", value: "DONE"}]
//		either: [{branches: [
//			[{column: "assignee", value: "ann"}],
//			[{column: "days_since_started", op: "<", value: 15}],
//		]}]
//		mask: ["name", "status"]
//		sort: [{column: "days_since_started", direction: "desc"}]
//		limit: 10
//	}
//
// Both forms decode into QueryDoc, which Build compiles through the same
// query.Builder used by typed code. Values are limited to strings, integers
// and booleans; floats are rejected.
package compiler

// QueryDoc is a declarative query.
type QueryDoc struct {
	Name   string      `json:"name,omitempty" yaml:"name,omitempty"`
	Table  string      `json:"table,omitempty" yaml:"table,omitempty"`
	IDs    []string    `json:"ids,omitempty" yaml:"ids,omitempty"`
	Where  []Condition `json:"where,omitempty" yaml:"where,omitempty"`
	Either []EitherDoc `json:"either,omitempty" yaml:"either,omitempty"`
	Mask   []string    `json:"mask,omitempty" yaml:"mask,omitempty"`
	Sort   []SortDoc   `json:"sort,omitempty" yaml:"sort,omitempty"`
	Limit  *int        `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Condition is one column comparison. Op defaults to equality. When In is
// set the column must equal one of its values and Value must be empty.
type Condition struct {
	Column string `json:"column" yaml:"column"`
	Op     string `json:"op,omitempty" yaml:"op,omitempty"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
	In     []any  `json:"in,omitempty" yaml:"in,omitempty"`
}

// EitherDoc is one OR-group. Each branch is a list of conditions that must
// hold together.
type EitherDoc struct {
	Branches [][]Condition `json:"branches" yaml:"branches"`
}

// SortDoc is one sort directive. Direction defaults to ascending.
type SortDoc struct {
	Column    string `json:"column" yaml:"column"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
}
