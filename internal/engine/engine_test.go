package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/apipb"
	"google.golang.org/protobuf/types/known/sourcecontextpb"

	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
	"github.com/roach88/entityq/internal/testutil"
)

var col = testutil.ProjectColumn

func run(t *testing.T, b *testutil.ProjectQueryBuilder) []string {
	t.Helper()
	q, err := b.Build()
	require.NoError(t, err)
	got, err := Execute(context.Background(), q, testutil.SampleProjects(), testutil.ProjectID)
	require.NoError(t, err)
	out := make([]string, len(got))
	for i, p := range got {
		out[i] = p.ID
	}
	return out
}

func TestExecute(t *testing.T) {
	testCases := []struct {
		name string
		b    *testutil.ProjectQueryBuilder
		want []string
	}{
		{
			name: "empty query returns everything in input order",
			b:    testutil.QueryProjects(),
			want: []string{"p1", "p2", "p3", "p4", "p5"},
		},
		{
			name: "id filter",
			b:    testutil.QueryProjects().ID().In("p4", "p2", "zz"),
			want: []string{"p2", "p4"},
		},
		{
			name: "and",
			b:    testutil.QueryProjects().Status().Is(testutil.StatusDone).DaysSinceStarted().IsLessThan(15),
			want: []string{"p1", "p5"},
		},
		{
			name: "or",
			b: testutil.QueryProjects().Either(
				func(b *testutil.ProjectQueryBuilder) *testutil.ProjectQueryBuilder { return b.Assignee().Is("cyd") },
				func(b *testutil.ProjectQueryBuilder) *testutil.ProjectQueryBuilder {
					return b.DaysSinceStarted().IsGreaterOrEqualTo(30)
				},
			),
			want: []string{"p3", "p4"},
		},
		{
			name: "and of or with multi-comparison branch",
			b: testutil.QueryProjects().
				Status().IsNot(testutil.StatusNew).
				Either(
					func(b *testutil.ProjectQueryBuilder) *testutil.ProjectQueryBuilder {
						return b.Assignee().Is("bob").DaysSinceStarted().IsLessOrEqualTo(10)
					},
					func(b *testutil.ProjectQueryBuilder) *testutil.ProjectQueryBuilder { return b.Name().Is("billing") },
				),
			want: []string{"p1", "p5"},
		},
		{
			name: "in",
			b:    testutil.QueryProjects().Assignee().In("ann", "cyd"),
			want: []string{"p1", "p3", "p4"},
		},
		{
			name: "sort is stable",
			b:    testutil.QueryProjects().SortAscendingBy(col.Status),
			want: []string{"p1", "p3", "p5", "p2", "p4"},
		},
		{
			name: "multi-key sort",
			b:    testutil.QueryProjects().SortAscendingBy(col.Assignee).SortDescendingBy(col.DaysSinceStarted),
			want: []string{"p3", "p1", "p2", "p5", "p4"},
		},
		{
			name: "sort then limit",
			b:    testutil.QueryProjects().SortDescendingBy(col.DaysSinceStarted).Limit(2),
			want: []string{"p3", "p2"},
		},
		{
			name: "limit larger than result",
			b:    testutil.QueryProjects().Status().Is(testutil.StatusNew).SortAscendingBy(col.Name).Limit(10),
			want: []string{"p4"},
		},
		{
			name: "no match",
			b:    testutil.QueryProjects().Name().Is("nothing"),
			want: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, run(t, tc.b))
		})
	}
}

func TestExecute_DoesNotModifyInput(t *testing.T) {
	records := testutil.SampleProjects()
	q, err := testutil.QueryProjects().SortDescendingBy(col.DaysSinceStarted).Build()
	require.NoError(t, err)

	_, err = Execute(context.Background(), q, records, testutil.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleProjects(), records)
}

func TestExecute_Errors(t *testing.T) {
	q, err := testutil.QueryProjects().ID().Is("p1").Build()
	require.NoError(t, err)

	t.Run("nil query", func(t *testing.T) {
		_, err := Execute[string, testutil.Project](context.Background(), nil, nil, testutil.ProjectID)
		assert.Error(t, err)
	})

	t.Run("id filter without id function", func(t *testing.T) {
		_, err := Execute(context.Background(), q, testutil.SampleProjects(), nil)
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Execute(ctx, q, testutil.SampleProjects(), testutil.ProjectID)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("scan quota", func(t *testing.T) {
		e := New(testutil.ProjectID, WithMaxScan(3))
		_, err := e.Execute(context.Background(), q, testutil.SampleProjects())
		require.Error(t, err)
		assert.True(t, IsQuotaError(err))
	})
}

func TestExecute_ObjectRecords(t *testing.T) {
	status := query.NewColumn("status", func(o ir.IRObject) ir.IRValue { return o["status"] })
	days := query.NewColumn("days", func(o ir.IRObject) ir.IRValue { return o["days"] })
	idOf := func(o ir.IRObject) string { return string(o["id"].(ir.IRString)) }

	records := []ir.IRObject{
		{"id": ir.IRString("a"), "status": ir.IRString("DONE"), "days": ir.IRInt(4), "owner": ir.IRObject{"name": ir.IRString("ann"), "team": ir.IRString("x")}},
		{"id": ir.IRString("b"), "status": ir.IRString("NEW")},
		{"id": ir.IRString("c"), "status": ir.IRString("DONE"), "days": ir.IRInt(1)},
	}

	b := query.New[string, ir.IRObject]()
	query.Where(b, status).Is(ir.IRString("DONE"))
	q, err := b.SortAscendingBy(days).WithMaskPaths("days", "owner.name").Build()
	require.NoError(t, err)

	got, err := Execute(context.Background(), q, records, idOf)
	require.NoError(t, err)
	assert.Equal(t, []ir.IRObject{
		{"id": ir.IRString("c"), "days": ir.IRInt(1)},
		{"id": ir.IRString("a"), "days": ir.IRInt(4), "owner": ir.IRObject{"name": ir.IRString("ann")}},
	}, got)

	// The input keeps every field.
	assert.Len(t, records[0]["owner"], 2)
}

func TestExecute_ProtoProjection(t *testing.T) {
	name := query.NewColumn("name", func(a *apipb.Api) string { return a.GetName() })
	records := []*apipb.Api{
		{Name: "library", Version: "v1", SourceContext: &sourcecontextpb.SourceContext{FileName: "library.proto"}},
		{Name: "shelf", Version: "v2"},
	}

	b := query.New[string, *apipb.Api]()
	query.Where(b, name).Is("library")
	q, err := b.WithMaskPaths("name", "source_context.file_name").Build()
	require.NoError(t, err)

	got, err := Execute(context.Background(), q, records, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, proto.Equal(&apipb.Api{
		Name:          "library",
		SourceContext: &sourcecontextpb.SourceContext{FileName: "library.proto"},
	}, got[0]))
	assert.Equal(t, "v1", records[0].GetVersion())
}

func TestProjectMessage_InvalidPath(t *testing.T) {
	_, err := ProjectMessage(&apipb.Api{Name: "x"}, []string{"nope"})
	require.Error(t, err)
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeProjection, re.Code)
}

func TestProject_OtherTypesUnchanged(t *testing.T) {
	p := testutil.SampleProjects()[0]
	got, err := Project(p, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestNewMaskTree(t *testing.T) {
	assert.Equal(t, maskTree{"a": nil}, newMaskTree([]string{"a.b", "a"}))
	assert.Equal(t, maskTree{"a": nil}, newMaskTree([]string{"a", "a.b"}))
	assert.Equal(t, maskTree{"a": maskTree{"b": nil, "c": nil}, "d": nil}, newMaskTree([]string{"a.b", "a.c", "d"}))
}

func TestCompare(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := "x"
	var nilString *string

	testCases := []struct {
		name    string
		actual  any
		op      query.ComparisonOperator
		literal any
		want    bool
	}{
		{"string equals", "a", query.Equals, "a", true},
		{"named string equals plain", testutil.StatusDone, query.Equals, "DONE", true},
		{"int less", 3, query.LessThan, 5, true},
		{"int vs int64", int32(5), query.Equals, int64(5), true},
		{"int vs float", 3, query.LessThan, 3.5, true},
		{"negative int vs uint", -1, query.LessThan, uint(0), true},
		{"bool order", false, query.LessThan, true, true},
		{"time", now, query.GreaterThan, now.Add(-time.Second), true},
		{"pointer deref", &s, query.Equals, "x", true},
		{"ir value", ir.IRInt(7), query.GreaterOrEqual, 7, true},
		{"nil actual never equals", nil, query.Equals, "x", false},
		{"nil actual never differs", nil, query.NotEquals, "x", false},
		{"nil pointer actual", nilString, query.NotEquals, "x", false},
		{"ir null", ir.IRNull{}, query.NotEquals, "x", false},
		{"mixed kinds not equal", "3", query.Equals, 3, false},
		{"mixed kinds never differ", "3", query.NotEquals, 3, false},
		{"mixed kinds unordered", "3", query.LessThan, 4, false},
		{"int against text", 3, query.LessThan, "abc", false},
		{"bool equals one", true, query.Equals, 1, true},
		{"bool equals zero", false, query.Equals, int64(0), true},
		{"one equals bool", ir.IRInt(1), query.Equals, ir.IRBool(true), true},
		{"bool below two", true, query.LessThan, 2, true},
		{"bool against text", true, query.Equals, "true", false},
		{"time against layout string", now, query.Equals, "2024-01-02T03:04:05.000000000Z", true},
		{"layout string before time", "2024-01-02T03:04:04.500000000Z", query.LessThan, now, true},
		{"slice against string", []string{"a"}, query.NotEquals, "a", false},
		{"slice equality", []string{"a"}, query.Equals, []string{"a"}, true},
		{"slice unordered", []string{"a"}, query.GreaterThan, []string{"a"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compare(tc.actual, tc.op, tc.literal))
		})
	}
}

func TestSortMixedKinds(t *testing.T) {
	assert.Equal(t, -1, compareForSort(nil, 1))
	assert.Equal(t, -1, compareForSort(5, "a"))
	assert.Equal(t, 1, compareForSort("a", true))
	assert.Equal(t, 0, compareForSort(true, 1))
	assert.Equal(t, -1, compareForSort(false, true))
	assert.Equal(t, -1, compareForSort("z", []string{"a"}))
}

func TestSortMissingValuesFirst(t *testing.T) {
	type row struct {
		ID    string
		Score *int
	}
	one, two := 1, 2
	score := query.NewColumn("score", func(r row) *int { return r.Score })
	rows := []row{{"a", &two}, {"b", nil}, {"c", &one}}

	asc, err := query.New[string, row]().SortAscendingBy(score).Build()
	require.NoError(t, err)
	got, err := Execute(context.Background(), asc, rows, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})

	desc, err := query.New[string, row]().SortDescendingBy(score).Build()
	require.NoError(t, err)
	got, err = Execute(context.Background(), desc, rows, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
}
