package engine

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/roach88/entityq/internal/ir"
)

// Project reduces record to the fields named by paths. Protobuf messages
// and ir.IRObject records are projected; any other record is returned as
// is. The input record is never modified.
func Project[R any](record R, paths []string) (R, error) {
	switch rec := any(record).(type) {
	case proto.Message:
		if !rec.ProtoReflect().IsValid() {
			return record, nil
		}
		out, err := ProjectMessage(rec, paths)
		if err != nil {
			return record, err
		}
		return any(out).(R), nil
	case ir.IRObject:
		return any(ProjectObject(rec, paths)).(R), nil
	}
	return record, nil
}

// ProjectMessage returns a copy of m holding only the masked fields.
func ProjectMessage(m proto.Message, paths []string) (proto.Message, error) {
	for _, p := range paths {
		if !(&fieldmaskpb.FieldMask{Paths: []string{p}}).IsValid(m) {
			return nil, newProjectionError(p, fmt.Errorf("no such field on %s", m.ProtoReflect().Descriptor().FullName()))
		}
	}
	out := proto.Clone(m)
	pruneMessage(out.ProtoReflect(), newMaskTree(paths))
	return out, nil
}

// ProjectObject returns a copy of obj holding "id" and the masked paths.
// Paths through non-object values are ignored.
func ProjectObject(obj ir.IRObject, paths []string) ir.IRObject {
	out := pruneObject(obj, newMaskTree(paths))
	if id, ok := obj["id"]; ok {
		out["id"] = id
	}
	return out
}

// maskTree maps a field name to the subtree selected below it. A nil
// subtree selects the whole field.
type maskTree map[string]maskTree

func newMaskTree(paths []string) maskTree {
	root := maskTree{}
	for _, p := range paths {
		node := root
		segs := strings.Split(p, ".")
		for i, seg := range segs {
			child, exists := node[seg]
			if exists && child == nil {
				break
			}
			if i == len(segs)-1 {
				node[seg] = nil
				break
			}
			if !exists {
				child = maskTree{}
				node[seg] = child
			}
			node = child
		}
	}
	return root
}

func pruneMessage(m protoreflect.Message, tree maskTree) {
	var drop []protoreflect.FieldDescriptor
	var descend []protoreflect.FieldDescriptor
	m.Range(func(fd protoreflect.FieldDescriptor, _ protoreflect.Value) bool {
		sub, ok := tree[string(fd.Name())]
		switch {
		case !ok:
			drop = append(drop, fd)
		case sub != nil && fd.Message() != nil && !fd.IsList() && !fd.IsMap():
			descend = append(descend, fd)
		}
		return true
	})
	for _, fd := range drop {
		m.Clear(fd)
	}
	for _, fd := range descend {
		pruneMessage(m.Mutable(fd).Message(), tree[string(fd.Name())])
	}
}

func pruneObject(obj ir.IRObject, tree maskTree) ir.IRObject {
	out := ir.IRObject{}
	for name, sub := range tree {
		v, ok := obj[name]
		if !ok {
			continue
		}
		if sub == nil {
			out[name] = v
			continue
		}
		if child, isObj := v.(ir.IRObject); isObj {
			out[name] = pruneObject(child, sub)
		}
	}
	return out
}
