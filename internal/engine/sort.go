package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/entityq/internal/query"
)

// sortRecords applies sorting as a stable multi-key sort. Missing values
// sort first in ascending order, then numbers, then text. Other values
// without a common order tie.
func sortRecords[R any](records []R, sorting []query.SortBy[R]) {
	if len(sorting) == 0 {
		return
	}
	slices.SortStableFunc(records, func(a, b R) int {
		for _, s := range sorting {
			c := compareForSort(s.Column().Extract(a), s.Column().Extract(b))
			if s.Direction() == query.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareForSort(a, b any) int {
	x, okA := scalarOf(a)
	y, okB := scalarOf(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	x, y = unify(x, y)
	if cx, cy := sortClass(x), sortClass(y); cx != cy {
		return cmp.Compare(cx, cy)
	}
	c, ok := compareScalars(x, y)
	if !ok {
		return 0
	}
	return c
}
