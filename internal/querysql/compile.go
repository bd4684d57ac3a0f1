// Package querysql compiles query plans to parameterized SQLite SQL.
//
// Every statement ends with a deterministic ORDER BY: the plan's sort
// directives followed by "id ASC COLLATE BINARY". Literal values are always
// bound as parameters, never interpolated. Column names are validated and
// quoted.
package querysql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
)

// IDColumn is the primary key column of every entity table.
const IDColumn = "id"

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var sqlOperators = map[query.ComparisonOperator]string{
	query.Equals:         "=",
	query.NotEquals:      "!=",
	query.GreaterThan:    ">",
	query.LessThan:       "<",
	query.GreaterOrEqual: ">=",
	query.LessOrEqual:    "<=",
}

// SQLCompiler compiles a query.Plan to SQL for SQLite.
type SQLCompiler struct {
	// Table is the entity table the statement reads from.
	Table string
}

// NewSQLCompiler creates a compiler reading from table.
func NewSQLCompiler(table string) *SQLCompiler {
	return &SQLCompiler{Table: table}
}

// Compile converts p to parameterized SQL.
// Returns (sql, params, error).
func (c *SQLCompiler) Compile(p query.Plan) (string, []any, error) {
	table, err := quoteIdentifier(c.Table)
	if err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	selectClause, err := compileProjection(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile mask: %w", err)
	}

	var conditions []string
	var params []any

	if len(p.IDs) > 0 {
		placeholders := make([]string, len(p.IDs))
		for i, id := range p.IDs {
			param, err := toParam(id)
			if err != nil {
				return "", nil, fmt.Errorf("id %d: %w", i, err)
			}
			placeholders[i] = "?"
			params = append(params, param)
		}
		conditions = append(conditions, IDColumn+" IN ("+strings.Join(placeholders, ", ")+")")
	}

	if !isEmpty(p.Filter) {
		filterSQL, filterParams, err := compilePredicate(p.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if len(conditions) > 0 && p.Filter.Operator == query.Or {
			filterSQL = "(" + filterSQL + ")"
		}
		conditions = append(conditions, filterSQL)
		params = append(params, filterParams...)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selectClause, table)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	orderBy, orderParams, err := compileOrderBy(p.Sort)
	if err != nil {
		return "", nil, fmt.Errorf("compile sort: %w", err)
	}
	sb.WriteString(" ORDER BY " + orderBy)
	params = append(params, orderParams...)

	if p.LimitSet {
		sb.WriteString(" LIMIT ?")
		params = append(params, int64(p.Limit))
	}

	return sb.String(), params, nil
}

// compileProjection returns the SELECT column list. Mask paths are reduced
// to their top-level field; the id column is always selected.
func compileProjection(p query.Plan) (string, error) {
	if !p.MaskSet {
		return "*", nil
	}
	cols := []string{IDColumn}
	seen := map[string]bool{IDColumn: true}
	for _, path := range p.Mask {
		top, _, _ := strings.Cut(path, ".")
		if seen[top] {
			continue
		}
		quoted, err := quoteIdentifier(top)
		if err != nil {
			return "", fmt.Errorf("mask path %q: %w", path, err)
		}
		seen[top] = true
		cols = append(cols, quoted)
	}
	return strings.Join(cols, ", "), nil
}

func isEmpty(p query.PlanPredicate) bool {
	return len(p.Parameters) == 0 && len(p.Children) == 0
}

// compilePredicate compiles one node. Child nodes are parenthesized; an
// empty node is vacuously true.
func compilePredicate(p query.PlanPredicate) (string, []any, error) {
	if isEmpty(p) {
		return "1 = 1", nil, nil
	}
	if !p.Operator.Valid() {
		return "", nil, fmt.Errorf("unknown logical operator %q", p.Operator)
	}

	var parts []string
	var params []any
	for _, c := range p.Parameters {
		sql, param, err := compileComparison(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, param...)
	}
	for _, child := range p.Children {
		sql, childParams, err := compilePredicate(child)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, childParams...)
	}
	return strings.Join(parts, " "+string(p.Operator)+" "), params, nil
}

// compileComparison compiles "(typeof(column) = 'kind' AND column OP ?)".
// The storage-class check keeps SQLite from converting the literal to the
// column's affinity or ordering integers before text, so a literal of
// another kind matches nothing. Dotted column paths read from a
// JSON-encoded top-level column through json_extract.
func compileComparison(c query.PlanComparison) (string, []any, error) {
	op, ok := sqlOperators[c.Operator]
	if !ok {
		return "", nil, fmt.Errorf("column %s: unknown comparison operator %q", c.Column, c.Operator)
	}
	ref, refParams, err := columnRef(c.Column)
	if err != nil {
		return "", nil, err
	}
	param, err := toParam(c.Value)
	if err != nil {
		return "", nil, fmt.Errorf("column %s: %w", c.Column, err)
	}
	params := append(append(append([]any{}, refParams...), refParams...), param)
	return fmt.Sprintf("(typeof(%s) = '%s' AND %s %s ?)", ref, storageClass(param), ref, op), params, nil
}

// storageClass returns the SQLite storage class a bound parameter takes.
// Bools bind as integers.
func storageClass(param any) string {
	if _, ok := param.(string); ok {
		return "text"
	}
	return "integer"
}

func compileOrderBy(sorts []query.PlanSort) (string, []any, error) {
	var parts []string
	var params []any
	for _, s := range sorts {
		if !s.Direction.Valid() {
			return "", nil, fmt.Errorf("column %s: unknown direction %q", s.Column, s.Direction)
		}
		ref, refParams, err := columnRef(s.Column)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, ref+" "+string(s.Direction))
		params = append(params, refParams...)
	}
	// Deterministic tiebreaker.
	parts = append(parts, IDColumn+" ASC COLLATE BINARY")
	return strings.Join(parts, ", "), params, nil
}

// columnRef returns the SQL expression for a column path.
func columnRef(path string) (string, []any, error) {
	top, rest, nested := strings.Cut(path, ".")
	quoted, err := quoteIdentifier(top)
	if err != nil {
		return "", nil, fmt.Errorf("column %q: %w", path, err)
	}
	if !nested {
		return quoted, nil, nil
	}
	for _, seg := range strings.Split(rest, ".") {
		if !identifierRe.MatchString(seg) {
			return "", nil, fmt.Errorf("column %q: invalid path segment %q", path, seg)
		}
	}
	return "json_extract(" + quoted + ", ?)", []any{"$." + rest}, nil
}

// ValidIdentifier reports whether name can be used as a table or column
// name.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

func quoteIdentifier(name string) (string, error) {
	if !identifierRe.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

// toParam converts a literal to a driver value. Literals go through the IR
// value model so that named types, pointers and time.Time bind the same way
// they are fingerprinted.
func toParam(v any) (any, error) {
	value, err := ir.FromGo(v)
	if err != nil {
		return nil, err
	}
	return irValueToParam(value)
}

// irValueToParam converts an ir.IRValue to a Go native type for SQL parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRNull:
		return nil, fmt.Errorf("null cannot be compared")
	case ir.IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
