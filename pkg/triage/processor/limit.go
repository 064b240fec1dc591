package processor

import (
	"sort"

	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/policy/ast"
)

// ApplyLimit truncates a filtered resource list by creation time. The
// input slice is never reordered; sorting happens on a copy. A nil
// limit returns the input unchanged.
func ApplyLimit(resources []*forge.Resource, limit *ast.Limit) []*forge.Resource {
	if limit == nil {
		return resources
	}

	sorted := append([]*forge.Resource(nil), resources...)
	if limit.MostRecent > 0 {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
	} else {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
	}

	count := limit.Count()
	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}
