package compiler

import (
	"strings"

	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
)

// ObjectColumn returns a column reading the dotted path name from an
// ir.IRObject record. Missing fields and paths through non-objects read
// as nil.
func ObjectColumn(name string) query.Column[ir.IRObject, ir.IRValue] {
	segs := strings.Split(name, ".")
	return query.NewColumn(name, func(obj ir.IRObject) ir.IRValue {
		var cur ir.IRValue = obj
		for _, seg := range segs {
			o, ok := cur.(ir.IRObject)
			if !ok {
				return nil
			}
			if cur, ok = o[seg]; !ok {
				return nil
			}
		}
		return cur
	})
}

// ObjectID reads the "id" field of a record; non-string ids read as "".
func ObjectID(obj ir.IRObject) string {
	if id, ok := obj["id"].(ir.IRString); ok {
		return string(id)
	}
	return ""
}
