package clustering

import (
	"github.com/okian/geocluster/internal/domain/record"
)

// GroupCount returns the number of distinct lower-cased group values, or 0
// when the batch has no group column.
func GroupCount(records []record.Record, cols record.Columns) int {
	if !cols.HasGroup {
		return 0
	}
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[record.GroupValue(r, cols)] = struct{}{}
	}
	return len(seen)
}

// SelectK derives the component count from g distinct groups and n records:
// clamp(max(g, 1), 1, n).
func SelectK(g, n int) int {
	return clamp(max(g, 1), 1, n)
}

// SelectKWithBudget bounds the group-derived count by a per-cluster point
// budget: max(min(n/maxPoints, g), n/minPoints), clamped to [1, n].
func SelectKWithBudget(g, n, minPoints, maxPoints int) int {
	k := max(min(n/maxPoints, g), n/minPoints)
	return clamp(k, 1, n)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
