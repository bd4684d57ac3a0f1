package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type task struct {
	Title string
	Done  bool
}

var (
	taskTitle = NewColumn("title", func(t task) string { return t.Title })
	taskDone  = NewColumn("done", func(t task) bool { return t.Done })
)

func TestFailedAccessorLeavesStateUntouched(t *testing.T) {
	b := New[int, task]()
	Where(b, taskTitle).Is("write docs")
	b.WithMaskPaths("title")
	b.SortAscendingBy(taskTitle)

	b.WithMaskPaths("done", "")
	b.Limit(0)
	b.SortBy(taskDone, Direction("UP"))
	b.Either()

	require.Len(t, b.errs, 4)
	assert.Equal(t, []string{"title"}, b.mask.GetPaths())
	assert.False(t, b.hasLimit)
	assert.Len(t, b.sorting, 1)
	assert.Len(t, b.params, 1)
	assert.Empty(t, b.children)
}

func TestBranchBuilderRejectsQueryLevelSettings(t *testing.T) {
	child := &Builder[int, task]{branch: true}
	child.ID().Is(1)
	child.WithMaskPaths("title")
	child.SortAscendingBy(taskTitle)
	child.Limit(1)
	Where(child, taskDone).Is(true)

	assert.Len(t, child.errs, 4)
	assert.Len(t, child.params, 1)
	assert.True(t, child.ids.IsEmpty())
	assert.Nil(t, child.mask)
}

func TestNormalize(t *testing.T) {
	leaf := &Predicate[task]{operator: Or, parameters: []Comparison[task]{
		{column: taskDone, operator: Equals, value: true},
	}}
	wrapped := &Predicate[task]{operator: And, children: []*Predicate[task]{
		{operator: And, children: []*Predicate[task]{leaf}},
	}}

	assert.Same(t, leaf, normalize(wrapped))
	assert.Nil(t, normalize[task](nil))

	flat := &Predicate[task]{operator: And, parameters: leaf.parameters, children: []*Predicate[task]{leaf}}
	assert.Same(t, flat, normalize(flat))
}

func TestQueryErrorMessage(t *testing.T) {
	err := nilArgument("WithMask", "field mask")
	assert.Equal(t, "NIL_ARGUMENT: WithMask: field mask must not be nil", err.Error())

	err = invalidState("Build", "limit %d requires at least one sort directive", 5)
	assert.Equal(t, "INVALID_STATE: Build: limit 5 requires at least one sort directive", err.Error())
}
