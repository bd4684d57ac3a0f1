package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var projectTable = Table{
	Name: "projects",
	Columns: []Column{
		{Name: "name", Kind: KindString},
		{Name: "status", Kind: KindString},
		{Name: "days_since_started", Kind: KindInt},
		{Name: "archived", Kind: KindBool},
		{Name: "owner", Kind: KindJSON},
	},
}

func seedProjects(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.EnsureTable(ctx, projectTable))
	_, err := s.PutAll(ctx, "projects", []ir.IRObject{
		{"id": ir.IRString("p1"), "name": ir.IRString("billing"), "status": ir.IRString("DONE"),
			"days_since_started": ir.IRInt(3), "archived": ir.IRBool(false),
			"owner": ir.IRObject{"name": ir.IRString("ann")}},
		{"id": ir.IRString("p2"), "name": ir.IRString("search"), "status": ir.IRString("IN_PROGRESS"),
			"days_since_started": ir.IRInt(20), "archived": ir.IRBool(false),
			"owner": ir.IRObject{"name": ir.IRString("bob")}},
		{"id": ir.IRString("p3"), "name": ir.IRString("reports"), "status": ir.IRString("DONE"),
			"days_since_started": ir.IRInt(30), "archived": ir.IRBool(true)},
	})
	require.NoError(t, err)
}

func ids(records []ir.IRObject) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r["id"].(ir.IRString))
	}
	return out
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.EnsureTable(context.Background(), projectTable))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	tables, err := s2.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, projectTable, tables[0])
}

func TestEnsureTable_AddsColumns(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.EnsureTable(ctx, Table{Name: "notes", Columns: []Column{{Name: "title", Kind: KindString}}}))
	require.NoError(t, s.EnsureTable(ctx, Table{Name: "notes", Columns: []Column{
		{Name: "title", Kind: KindString},
		{Name: "pinned", Kind: KindBool},
	}}))

	got, err := s.Table(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, []Column{{Name: "title", Kind: KindString}, {Name: "pinned", Kind: KindBool}}, got.Columns)

	_, err = s.Put(ctx, "notes", ir.IRObject{"id": ir.IRString("n1"), "pinned": ir.IRBool(true)})
	assert.NoError(t, err)
}

func TestEnsureTable_Errors(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.EnsureTable(ctx, Table{Name: "notes", Columns: []Column{{Name: "title", Kind: KindString}}}))

	testCases := []struct {
		name  string
		table Table
	}{
		{"invalid name", Table{Name: "no tes"}},
		{"reserved name", Table{Name: "entity_tables"}},
		{"sqlite prefix", Table{Name: "sqlite_master"}},
		{"explicit id", Table{Name: "t", Columns: []Column{{Name: "id", Kind: KindString}}}},
		{"duplicate column", Table{Name: "t", Columns: []Column{{Name: "a", Kind: KindInt}, {Name: "a", Kind: KindInt}}}},
		{"unknown kind", Table{Name: "t", Columns: []Column{{Name: "a", Kind: "float"}}}},
		{"kind change", Table{Name: "notes", Columns: []Column{{Name: "title", Kind: KindInt}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, s.EnsureTable(ctx, tc.table))
		})
	}
}

func TestInferTable(t *testing.T) {
	records := []ir.IRObject{
		{"id": ir.IRString("a"), "name": ir.IRString("x"), "note": ir.IRNull{}},
		{"id": ir.IRString("b"), "count": ir.IRInt(2), "note": ir.IRString("hi"), "tags": ir.IRArray{}},
	}
	got, err := InferTable("things", records)
	require.NoError(t, err)
	assert.Equal(t, Table{Name: "things", Columns: []Column{
		{Name: "name", Kind: KindString},
		{Name: "note", Kind: KindString},
		{Name: "count", Kind: KindInt},
		{Name: "tags", Kind: KindJSON},
	}}, got)

	_, err = InferTable("things", []ir.IRObject{
		{"n": ir.IRInt(1)},
		{"n": ir.IRString("1")},
	})
	assert.Error(t, err)
}

func TestPut_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedProjects(t, s)

	got, ok, err := s.Get(ctx, "projects", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{
		"id":                 ir.IRString("p1"),
		"name":               ir.IRString("billing"),
		"status":             ir.IRString("DONE"),
		"days_since_started": ir.IRInt(3),
		"archived":           ir.IRBool(false),
		"owner":              ir.IRObject{"name": ir.IRString("ann")},
	}, got)

	// Null owner is omitted.
	got, ok, err = s.Get(ctx, "projects", "p3")
	require.NoError(t, err)
	require.True(t, ok)
	_, hasOwner := got["owner"]
	assert.False(t, hasOwner)

	_, ok, err = s.Get(ctx, "projects", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPut_AssignsUUID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.EnsureTable(ctx, projectTable))

	id, err := s.Put(ctx, "projects", ir.IRObject{"name": ir.IRString("untitled")})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, ok, err := s.Get(ctx, "projects", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.IRString("untitled"), got["name"])
}

func TestPut_Replaces(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedProjects(t, s)

	_, err := s.Put(ctx, "projects", ir.IRObject{"id": ir.IRString("p1"), "name": ir.IRString("renamed")})
	require.NoError(t, err)

	got, _, err := s.Get(ctx, "projects", "p1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"id": ir.IRString("p1"), "name": ir.IRString("renamed")}, got)
}

func TestPut_Errors(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.EnsureTable(ctx, projectTable))

	testCases := []struct {
		name   string
		table  string
		record ir.IRObject
	}{
		{"unknown table", "missing", ir.IRObject{}},
		{"unknown column", "projects", ir.IRObject{"color": ir.IRString("red")}},
		{"kind mismatch", "projects", ir.IRObject{"days_since_started": ir.IRString("3")}},
		{"non-string id", "projects", ir.IRObject{"id": ir.IRInt(1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Put(ctx, tc.table, tc.record)
			assert.Error(t, err)
		})
	}
}

func TestPutAll_Atomic(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.EnsureTable(ctx, projectTable))

	_, err := s.PutAll(ctx, "projects", []ir.IRObject{
		{"id": ir.IRString("ok"), "name": ir.IRString("fine")},
		{"id": ir.IRString("bad"), "color": ir.IRString("red")},
	})
	require.Error(t, err)

	records, err := s.Find(ctx, "projects", query.Plan{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedProjects(t, s)

	and := func(params ...query.PlanComparison) query.PlanPredicate {
		return query.PlanPredicate{Operator: query.And, Parameters: params}
	}

	testCases := []struct {
		name string
		plan query.Plan
		want []string
	}{
		{
			name: "everything in id order",
			plan: query.Plan{},
			want: []string{"p1", "p2", "p3"},
		},
		{
			name: "id filter",
			plan: query.Plan{IDs: []any{"p3", "p1"}},
			want: []string{"p1", "p3"},
		},
		{
			name: "equality",
			plan: query.Plan{Filter: and(query.PlanComparison{Column: "status", Operator: query.Equals, Value: "DONE"})},
			want: []string{"p1", "p3"},
		},
		{
			name: "bool column",
			plan: query.Plan{Filter: and(query.PlanComparison{Column: "archived", Operator: query.Equals, Value: true})},
			want: []string{"p3"},
		},
		{
			name: "nested json path",
			plan: query.Plan{Filter: and(query.PlanComparison{Column: "owner.name", Operator: query.Equals, Value: "bob"})},
			want: []string{"p2"},
		},
		{
			name: "or group",
			plan: query.Plan{Filter: query.PlanPredicate{Operator: query.Or, Parameters: []query.PlanComparison{
				{Column: "days_since_started", Operator: query.LessThan, Value: 5},
				{Column: "days_since_started", Operator: query.GreaterThan, Value: 25},
			}}},
			want: []string{"p1", "p3"},
		},
		{
			name: "sort and limit",
			plan: query.Plan{
				Sort:     []query.PlanSort{{Column: "days_since_started", Direction: query.Descending}},
				Limit:    2,
				LimitSet: true,
			},
			want: []string{"p3", "p2"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := s.Find(ctx, "projects", tc.plan)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(records))
		})
	}
}

func TestFind_Mask(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedProjects(t, s)

	records, err := s.Find(ctx, "projects", query.Plan{
		IDs:     []any{"p2"},
		Mask:    []string{"status", "owner.name"},
		MaskSet: true,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ir.IRObject{
		"id":     ir.IRString("p2"),
		"status": ir.IRString("IN_PROGRESS"),
		"owner":  ir.IRObject{"name": ir.IRString("bob")},
	}, records[0])
}

func TestFind_UnknownTable(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Find(context.Background(), "missing", query.Plan{})
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedProjects(t, s)

	require.NoError(t, s.Delete(ctx, "projects", "p2"))
	require.NoError(t, s.Delete(ctx, "projects", "p2"))

	records, err := s.Find(ctx, "projects", query.Plan{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, ids(records))
}
