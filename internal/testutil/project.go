// Package testutil holds fixtures shared by tests, including a hand-written
// example of the per-record-type query glue a code generator would emit.
package testutil

import (
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/roach88/entityq/internal/query"
)

// Status is the lifecycle state of a Project.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Project is the example record type.
type Project struct {
	ID               string
	Name             string
	Status           Status
	DaysSinceStarted int
	Assignee         string
}

// ProjectID returns the identifier of p.
func ProjectID(p Project) string {
	return p.ID
}

// ProjectColumn is the column namespace of Project.
var ProjectColumn = struct {
	ID               query.Column[Project, string]
	Name             query.Column[Project, string]
	Status           query.Column[Project, Status]
	DaysSinceStarted query.Column[Project, int]
	Assignee         query.Column[Project, string]
}{
	ID:               query.NewColumn("id", func(p Project) string { return p.ID }),
	Name:             query.NewColumn("name", func(p Project) string { return p.Name }),
	Status:           query.NewColumn("status", func(p Project) Status { return p.Status }),
	DaysSinceStarted: query.NewColumn("days_since_started", func(p Project) int { return p.DaysSinceStarted }),
	Assignee:         query.NewColumn("assignee", func(p Project) string { return p.Assignee }),
}

// ProjectField names Project fields for masks.
var ProjectField = struct {
	Name             string
	Status           string
	DaysSinceStarted string
	Assignee         string
}{
	Name:             "name",
	Status:           "status",
	DaysSinceStarted: "days_since_started",
	Assignee:         "assignee",
}

// ProjectQueryBuilder is the typed query builder for Project.
type ProjectQueryBuilder struct {
	b *query.Builder[string, Project]
}

// QueryProjects starts a new Project query.
func QueryProjects() *ProjectQueryBuilder {
	return &ProjectQueryBuilder{b: query.New[string, Project]()}
}

// ProjectQueryFrom wraps an existing builder, e.g. one returned by
// Query.ToBuilder.
func ProjectQueryFrom(b *query.Builder[string, Project]) *ProjectQueryBuilder {
	return &ProjectQueryBuilder{b: b}
}

// Core returns the wrapped generic builder.
func (q *ProjectQueryBuilder) Core() *query.Builder[string, Project] {
	return q.b
}

func (q *ProjectQueryBuilder) ID() *query.IDClause[*ProjectQueryBuilder, string] {
	return query.NewIDClause(q, q.b)
}

func (q *ProjectQueryBuilder) Name() *query.Clause[*ProjectQueryBuilder, string] {
	return query.NewClause(q, q.b, ProjectColumn.Name)
}

func (q *ProjectQueryBuilder) Status() *query.Clause[*ProjectQueryBuilder, Status] {
	return query.NewClause(q, q.b, ProjectColumn.Status)
}

func (q *ProjectQueryBuilder) DaysSinceStarted() *query.Clause[*ProjectQueryBuilder, int] {
	return query.NewClause(q, q.b, ProjectColumn.DaysSinceStarted)
}

func (q *ProjectQueryBuilder) Assignee() *query.Clause[*ProjectQueryBuilder, string] {
	return query.NewClause(q, q.b, ProjectColumn.Assignee)
}

// Either adds one OR-group; every branch gets a fresh child builder.
func (q *ProjectQueryBuilder) Either(branches ...func(*ProjectQueryBuilder) *ProjectQueryBuilder) *ProjectQueryBuilder {
	wrapped := make([]query.Either[string, Project], len(branches))
	for i, branch := range branches {
		branch := branch
		if branch == nil {
			continue
		}
		wrapped[i] = func(c *query.Builder[string, Project]) *query.Builder[string, Project] {
			if r := branch(&ProjectQueryBuilder{b: c}); r != nil {
				return r.b
			}
			return c
		}
	}
	q.b.Either(wrapped...)
	return q
}

func (q *ProjectQueryBuilder) WithMask(m *fieldmaskpb.FieldMask) *ProjectQueryBuilder {
	q.b.WithMask(m)
	return q
}

func (q *ProjectQueryBuilder) WithMaskPaths(paths ...string) *ProjectQueryBuilder {
	q.b.WithMaskPaths(paths...)
	return q
}

func (q *ProjectQueryBuilder) SortAscendingBy(col query.AnyColumn[Project]) *ProjectQueryBuilder {
	q.b.SortAscendingBy(col)
	return q
}

func (q *ProjectQueryBuilder) SortDescendingBy(col query.AnyColumn[Project]) *ProjectQueryBuilder {
	q.b.SortDescendingBy(col)
	return q
}

func (q *ProjectQueryBuilder) Limit(n int) *ProjectQueryBuilder {
	q.b.Limit(n)
	return q
}

func (q *ProjectQueryBuilder) Build() (*query.Query[string, Project], error) {
	return q.b.Build()
}

// SampleProjects returns a fixed set of projects used across tests.
func SampleProjects() []Project {
	return []Project{
		{ID: "p1", Name: "billing", Status: StatusDone, DaysSinceStarted: 3, Assignee: "ann"},
		{ID: "p2", Name: "search", Status: StatusInProgress, DaysSinceStarted: 20, Assignee: "bob"},
		{ID: "p3", Name: "reports", Status: StatusDone, DaysSinceStarted: 30, Assignee: "ann"},
		{ID: "p4", Name: "onboarding", Status: StatusNew, DaysSinceStarted: 0, Assignee: "cyd"},
		{ID: "p5", Name: "exports", Status: StatusDone, DaysSinceStarted: 10, Assignee: "bob"},
	}
}
