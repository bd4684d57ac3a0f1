package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/entityq/internal/query"
)

// Engine executes queries over in-memory records of type R identified by
// values of type I. An Engine holds no per-query state and may be used
// concurrently.
type Engine[I comparable, R any] struct {
	idOf    func(R) I
	maxScan int
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	maxScan int
	logger  *slog.Logger
}

// WithMaxScan limits how many records a single Execute call may inspect.
//
// Default: DefaultMaxScan (no limit).
func WithMaxScan(maxScan int) Option {
	return func(o *options) {
		o.maxScan = maxScan
	}
}

// WithLogger sets the logger used for debug output.
//
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates an Engine. idOf reads the identifier of a record; it is only
// required for queries with an identifier filter.
func New[I comparable, R any](idOf func(R) I, opts ...Option) *Engine[I, R] {
	o := options{maxScan: DefaultMaxScan}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Engine[I, R]{idOf: idOf, maxScan: o.maxScan, logger: o.logger}
}

// Execute runs q over records and returns the matching records in result
// order. records is not modified. Returns an empty slice (not nil) when
// nothing matches.
func Execute[I comparable, R any](ctx context.Context, q *query.Query[I, R], records []R, idOf func(R) I) ([]R, error) {
	return New(idOf).Execute(ctx, q, records)
}

// Execute runs q over records. See the package documentation for the
// evaluation order.
func (e *Engine[I, R]) Execute(ctx context.Context, q *query.Query[I, R], records []R) ([]R, error) {
	if q == nil {
		return nil, errors.New("cannot execute nil query")
	}
	ids := q.Subject().ID()
	if !ids.IsEmpty() && e.idOf == nil {
		return nil, errors.New("identifier filter requires an id function")
	}
	root := q.Subject().Predicate()
	quota := NewQuotaEnforcer(e.maxScan)

	matched := []R{}
	for i, rec := range records {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := quota.Check(); err != nil {
			return nil, err
		}
		if !ids.IsEmpty() && !ids.Contains(e.idOf(rec)) {
			continue
		}
		if !Matches(root, rec) {
			continue
		}
		matched = append(matched, rec)
	}

	sortRecords(matched, q.Sorting())

	if n, ok := q.WhichLimit(); ok && len(matched) > n {
		matched = matched[:n]
	}

	if mask, ok := q.WhichMask(); ok {
		for i, rec := range matched {
			projected, err := Project(rec, mask.GetPaths())
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			matched[i] = projected
		}
	}

	e.logger.Debug("query executed",
		"record_type", q.Subject().RecordType().String(),
		"scanned", quota.Current(),
		"returned", len(matched),
	)
	return matched, nil
}
