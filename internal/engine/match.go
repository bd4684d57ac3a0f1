package engine

import (
	"cmp"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
)

// Matches reports whether record satisfies p.
func Matches[R any](p *query.Predicate[R], record R) bool {
	if p.IsEmpty() {
		return true
	}
	if p.Operator() == query.Or {
		for _, c := range p.Parameters() {
			if holds(c, record) {
				return true
			}
		}
		for _, child := range p.Children() {
			if Matches(child, record) {
				return true
			}
		}
		return false
	}
	for _, c := range p.Parameters() {
		if !holds(c, record) {
			return false
		}
	}
	for _, child := range p.Children() {
		if !Matches(child, record) {
			return false
		}
	}
	return true
}

func holds[R any](c query.Comparison[R], record R) bool {
	return Compare(c.Column().Extract(record), c.Operator(), c.Value())
}

// Compare evaluates "actual op literal". Missing values (nil, nil pointers,
// ir.IRNull) satisfy no operator. Bools compare with numbers as 0 and 1 and
// times with strings in ir.TimeLayout, the way SQLite stores them. Values of
// different kinds otherwise satisfy no operator, NOT_EQUALS included.
func Compare(actual any, op query.ComparisonOperator, literal any) bool {
	a, okA := scalarOf(actual)
	b, okB := scalarOf(literal)
	if !okA || !okB {
		return false
	}
	a, b = unify(a, b)
	c, ordered := compareScalars(a, b)
	if !ordered {
		if reflect.TypeOf(a) != reflect.TypeOf(b) || sortClass(a) != classOther {
			return false
		}
		switch op {
		case query.Equals:
			return reflect.DeepEqual(a, b)
		case query.NotEquals:
			return !reflect.DeepEqual(a, b)
		}
		return false
	}
	switch op {
	case query.Equals:
		return c == 0
	case query.NotEquals:
		return c != 0
	case query.GreaterThan:
		return c > 0
	case query.LessThan:
		return c < 0
	case query.GreaterOrEqual:
		return c >= 0
	case query.LessOrEqual:
		return c <= 0
	}
	return false
}

// unify converts a bool compared with a number to 0 or 1, and a time
// compared with a string to its ir.TimeLayout form.
func unify(a, b any) (any, any) {
	switch {
	case isBool(a) && isNumber(b):
		return boolInt(a.(bool)), b
	case isNumber(a) && isBool(b):
		return a, boolInt(b.(bool))
	}
	if t, ok := a.(time.Time); ok {
		if _, ok := b.(string); ok {
			return t.UTC().Format(ir.TimeLayout), b
		}
	}
	if t, ok := b.(time.Time); ok {
		if _, ok := a.(string); ok {
			return a, t.UTC().Format(ir.TimeLayout)
		}
	}
	return a, b
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, uint64, float64:
		return true
	}
	return false
}

func boolInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

// Storage classes in SQLite's cross-type order.
const (
	classNumber = iota + 1
	classText
	classOther
)

// sortClass places a normalized value in SQLite's order: numbers (bools
// included) before text (times included) before everything else.
func sortClass(v any) int {
	switch v.(type) {
	case bool, int64, uint64, float64:
		return classNumber
	case string, time.Time:
		return classText
	}
	return classOther
}

// scalarOf normalizes v to string, bool, int64, uint64, float64 or
// time.Time where possible. Other values are returned as they are.
// The second result is false for missing values.
func scalarOf(v any) (any, bool) {
	if iv, ok := v.(ir.IRValue); ok {
		v = ir.Native(iv)
	}
	if v == nil {
		return nil, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if t, ok := rv.Interface().(time.Time); ok {
		return t, true
	}
	return rv.Interface(), true
}

// compareScalars orders two normalized values. The second result is false
// when the values have no common order.
func compareScalars(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			return compareBools(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case int64, uint64, float64:
		return compareNumbers(a, b)
	}
	return 0, false
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareNumbers(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), true
		case uint64:
			if x < 0 {
				return -1, true
			}
			return cmp.Compare(uint64(x), y), true
		case float64:
			return cmp.Compare(float64(x), y), true
		}
	case uint64:
		switch y := b.(type) {
		case int64:
			if y < 0 {
				return 1, true
			}
			return cmp.Compare(x, uint64(y)), true
		case uint64:
			return cmp.Compare(x, y), true
		case float64:
			return cmp.Compare(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, float64(y)), true
		case uint64:
			return cmp.Compare(x, float64(y)), true
		case float64:
			return cmp.Compare(x, y), true
		}
	}
	return 0, false
}
