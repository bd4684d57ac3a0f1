package query

import (
	"fmt"
	"reflect"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

// ValidationResult is the advisory analysis of a built query.
//
// A Query returned by Build is always well-formed; Validate looks for
// constructs that are legal but probably not what the caller meant, or
// that some executors cannot honor.
type ValidationResult struct {
	// Clean is true when no warnings were found.
	Clean bool

	// Warnings lists the findings in traversal order.
	Warnings []string
}

// Validate inspects q and reports warnings:
//   - mask paths that do not exist on a protobuf record type
//   - columns sorted more than once (later directives can never apply)
//   - ordering comparisons on values without a natural order
//
// Validate is a pure function.
func Validate[I comparable, R any](q *Query[I, R]) ValidationResult {
	v := &validator{warnings: []string{}}
	if q == nil {
		v.addWarning("nil query")
	} else {
		validateMask(v, q)
		v.validateSorting(q.Plan().Sort)
		v.validatePredicate(q.Plan().Filter)
	}
	return ValidationResult{
		Clean:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateMask checks mask paths against the message descriptor when R is
// a protobuf message type. Other record types are not checked.
func validateMask[I comparable, R any](v *validator, q *Query[I, R]) {
	if q.mask == nil {
		return
	}
	var zero R
	msg, ok := any(zero).(proto.Message)
	if !ok {
		return
	}
	for _, path := range q.mask.GetPaths() {
		single := &fieldmaskpb.FieldMask{Paths: []string{path}}
		if !single.IsValid(msg) {
			v.addWarning("mask path %q does not exist on %s", path, msg.ProtoReflect().Descriptor().FullName())
		}
	}
}

func (v *validator) validateSorting(sorts []PlanSort) {
	seen := map[string]bool{}
	for _, s := range sorts {
		if seen[s.Column] {
			v.addWarning("column %q is sorted more than once; only the first directive affects order", s.Column)
		}
		seen[s.Column] = true
	}
}

func (v *validator) validatePredicate(p PlanPredicate) {
	if p.Operator == Or && len(p.Parameters) == 0 && len(p.Children) == 0 {
		v.addWarning("empty OR group")
	}
	for _, c := range p.Parameters {
		if c.Operator == Equals || c.Operator == NotEquals {
			continue
		}
		if !orderable(c.Value) {
			v.addWarning("column %q: %s on a %T value has no natural order", c.Column, c.Operator, c.Value)
		}
	}
	for _, child := range p.Children {
		v.validatePredicate(child)
	}
}

// orderable reports whether executors can order values like v.
func orderable(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Struct:
		return rv.Type() == reflect.TypeOf((*time.Time)(nil)).Elem()
	}
	return false
}
