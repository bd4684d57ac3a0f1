package compiler

import (
	"context"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entityq/internal/engine"
	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
)

func sampleRecords() []ir.IRObject {
	return []ir.IRObject{
		{"id": ir.IRString("p1"), "status": ir.IRString("DONE"), "days": ir.IRInt(3), "assignee": ir.IRString("ann")},
		{"id": ir.IRString("p2"), "status": ir.IRString("IN_PROGRESS"), "days": ir.IRInt(20), "assignee": ir.IRString("bob")},
		{"id": ir.IRString("p3"), "status": ir.IRString("DONE"), "days": ir.IRInt(30), "assignee": ir.IRString("ann")},
		{"id": ir.IRString("p4"), "status": ir.IRString("NEW"), "days": ir.IRInt(0), "assignee": ir.IRString("cyd"),
			"owner": ir.IRObject{"team": ir.IRString("core")}},
	}
}

func execute(t *testing.T, q *ObjectQuery) []string {
	t.Helper()
	got, err := engine.Execute(context.Background(), q, sampleRecords(), ObjectID)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = ObjectID(r)
	}
	return ids
}

func TestObjectColumn(t *testing.T) {
	rec := ir.IRObject{
		"status": ir.IRString("DONE"),
		"owner":  ir.IRObject{"name": ir.IRString("ann")},
	}
	assert.Equal(t, ir.IRString("DONE"), ObjectColumn("status").Get(rec))
	assert.Equal(t, ir.IRString("ann"), ObjectColumn("owner.name").Get(rec))
	assert.Nil(t, ObjectColumn("missing").Get(rec))
	assert.Nil(t, ObjectColumn("status.name").Get(rec))
	assert.Equal(t, "owner.name", ObjectColumn("owner.name").Name())
}

func TestBuild(t *testing.T) {
	limit := 1
	testCases := []struct {
		name string
		doc  QueryDoc
		want []string
	}{
		{"empty", QueryDoc{}, []string{"p1", "p2", "p3", "p4"}},
		{"ids", QueryDoc{IDs: []string{"p3", "p2"}}, []string{"p2", "p3"}},
		{
			name: "where defaults to equality",
			doc:  QueryDoc{Where: []Condition{{Column: "status", Value: "DONE"}}},
			want: []string{"p1", "p3"},
		},
		{
			name: "symbolic operator",
			doc:  QueryDoc{Where: []Condition{{Column: "days", Op: ">=", Value: 20}}},
			want: []string{"p2", "p3"},
		},
		{
			name: "in",
			doc:  QueryDoc{Where: []Condition{{Column: "assignee", In: []any{"bob", "cyd"}}}},
			want: []string{"p2", "p4"},
		},
		{
			name: "nested column",
			doc:  QueryDoc{Where: []Condition{{Column: "owner.team", Value: "core"}}},
			want: []string{"p4"},
		},
		{
			name: "either",
			doc: QueryDoc{
				Where: []Condition{{Column: "status", Op: "!=", Value: "NEW"}},
				Either: []EitherDoc{{Branches: [][]Condition{
					{{Column: "assignee", Value: "bob"}},
					{{Column: "assignee", Value: "ann"}, {Column: "days", Op: "<", Value: 10}},
				}}},
			},
			want: []string{"p1", "p2"},
		},
		{
			name: "sort and limit",
			doc: QueryDoc{
				Sort:  []SortDoc{{Column: "days", Direction: "desc"}},
				Limit: &limit,
			},
			want: []string{"p3"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Build(&tc.doc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, execute(t, q))
		})
	}
}

func TestBuild_EitherStructure(t *testing.T) {
	q, err := Build(&QueryDoc{Either: []EitherDoc{{Branches: [][]Condition{
		{{Column: "a", Value: 1}},
		{{Column: "b", Value: 2}},
		{{Column: "c", Value: 3}},
	}}}})
	require.NoError(t, err)

	root := q.Subject().Predicate()
	assert.Equal(t, query.Or, root.Operator())
	assert.Empty(t, root.Children())
	assert.Len(t, root.AllParams(), 3)
}

func TestBuild_Errors(t *testing.T) {
	zero := 0
	one := 1
	testCases := []struct {
		name string
		doc  QueryDoc
		code string
	}{
		{"empty column", QueryDoc{Where: []Condition{{Value: "x"}}}, ErrEmptyColumn},
		{"unknown operator", QueryDoc{Where: []Condition{{Column: "a", Op: "LIKE", Value: "x"}}}, ErrUnknownOperator},
		{"float value", QueryDoc{Where: []Condition{{Column: "a", Value: 1.5}}}, ErrUnsupportedValue},
		{"list value", QueryDoc{Where: []Condition{{Column: "a", Value: []any{"x"}}}}, ErrUnsupportedValue},
		{"missing value", QueryDoc{Where: []Condition{{Column: "a"}}}, ErrMissingValue},
		{"value and in", QueryDoc{Where: []Condition{{Column: "a", Value: "x", In: []any{"y"}}}}, ErrValueAndIn},
		{"empty in", QueryDoc{Where: []Condition{{Column: "a", In: []any{}}}}, ErrEmptyIn},
		{"in with ordering", QueryDoc{Where: []Condition{{Column: "a", Op: ">", In: []any{1}}}}, ErrOperatorWithIn},
		{"limit without sort", QueryDoc{Limit: &one}, ErrLimitWithoutSort},
		{"zero limit", QueryDoc{Sort: []SortDoc{{Column: "a"}}, Limit: &zero}, ErrNonPositiveLimit},
		{"bad direction", QueryDoc{Sort: []SortDoc{{Column: "a", Direction: "up"}}}, ErrUnknownDirection},
		{"empty either", QueryDoc{Either: []EitherDoc{{}}}, ErrEmptyEither},
		{"empty mask path", QueryDoc{Mask: []string{""}}, ErrEmptyMaskPath},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateDoc(&tc.doc)
			require.NotEmpty(t, errs)
			assert.Equal(t, tc.code, errs[0].Code)

			_, err := Build(&tc.doc)
			assert.Error(t, err)
		})
	}

	_, err := Build(nil)
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
name: recent
table: projects
where:
  - column: status
    value: DONE
  - column: days
    op: "<"
    value: 25
mask: [assignee]
sort:
  - column: days
    direction: desc
limit: 5
---
name: team
either:
  - branches:
      - - column: assignee
          value: cyd
      - - column: days
          op: ">"
          value: 25
`)
	docs, err := ParseYAML(data)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "recent", docs[0].Name)
	assert.Equal(t, "projects", docs[0].Table)
	assert.Equal(t, []string{"assignee"}, docs[0].Mask)
	require.NotNil(t, docs[0].Limit)
	assert.Equal(t, 5, *docs[0].Limit)

	q, err := Build(&docs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, execute(t, q))

	q, err = Build(&docs[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p4"}, execute(t, q))
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := ParseYAML([]byte("colour: red\n"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte(""))
	assert.Error(t, err)
}

func compileCUE(t *testing.T, src, path string) cue.Value {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("queries.cue"))
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath(path))
}

func TestCompileQuery(t *testing.T) {
	v := compileCUE(t, `
queries: recent_done: {
	table: "projects"
	ids: ["p1", "p2", "p3"]
	where: [{column: "status", value: "DONE"}]
	either: [{branches: [
		[{column: "assignee", value: "ann"}],
		[{column: "days", op: "<", value: 15}],
	]}]
	mask: ["assignee"]
	sort: [{column: "days", direction: "desc"}]
	limit: 10
}
`, "queries.recent_done")

	doc, err := CompileQuery(v)
	require.NoError(t, err)

	limit := 10
	assert.Equal(t, &QueryDoc{
		Name:  "recent_done",
		Table: "projects",
		IDs:   []string{"p1", "p2", "p3"},
		Where: []Condition{{Column: "status", Value: "DONE"}},
		Either: []EitherDoc{{Branches: [][]Condition{
			{{Column: "assignee", Value: "ann"}},
			{{Column: "days", Op: "<", Value: int64(15)}},
		}}},
		Mask:  []string{"assignee"},
		Sort:  []SortDoc{{Column: "days", Direction: "desc"}},
		Limit: &limit,
	}, doc)

	q, err := Build(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1"}, execute(t, q))
}

func TestCompileQuery_InAndBool(t *testing.T) {
	v := compileCUE(t, `
q: {
	name: "custom"
	where: [
		{column: "assignee", in: ["ann", "bob"]},
		{column: "archived", op: "!=", value: true},
	]
}
`, "q")

	doc, err := CompileQuery(v)
	require.NoError(t, err)
	assert.Equal(t, "custom", doc.Name)
	assert.Equal(t, []Condition{
		{Column: "assignee", In: []any{"ann", "bob"}},
		{Column: "archived", Op: "!=", Value: true},
	}, doc.Where)
	assert.Nil(t, doc.Mask)
}

func TestCompileQuery_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		field string
	}{
		{"float value", `q: where: [{column: "a", value: 1.5}]`, "where.value"},
		{"missing column", `q: where: [{value: 1}]`, "where.column"},
		{"non-concrete value", `q: where: [{column: "a", value: string}]`, "where.value"},
		{"bad limit", `q: limit: "ten"`, "limit"},
		{"bad mask", `q: mask: "name"`, "mask"},
		{"missing branches", `q: either: [{}]`, "either.branches"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := compileCUE(t, tc.src, "q")
			_, err := CompileQuery(v)
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestCompileError_Position(t *testing.T) {
	v := compileCUE(t, "q: where: [{column: \"a\", value: 1.5}]", "q")
	_, err := CompileQuery(v)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.True(t, ce.Pos.IsValid())
	assert.Equal(t, 1, ce.Pos.Line())
	assert.Contains(t, err.Error(), "queries.cue:1:")
	assert.Contains(t, err.Error(), "floats are not allowed")
}
