package layout

import "fmt"

// UnpinDownstream applies the edit policy for a committed size change of
// item id. Every root that follows id's root in forest order and shares its
// region loses its pinned address; earlier roots and other regions keep
// theirs. It returns the ids that were unpinned.
func UnpinDownstream(f *Forest, id int) ([]int, error) {
	root, idx, ok := f.RootOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownItem, id)
	}

	region := regionOf(root)
	var unpinned []int
	for _, it := range f.roots[idx+1:] {
		if regionOf(it) == region && it.Pinned {
			it.Unpin()
			unpinned = append(unpinned, it.ID)
		}
	}
	return unpinned, nil
}

// regionOf prefers the resolved region and falls back to the explicit one
// for items that have not been resolved yet.
func regionOf(it *Item) string {
	if it.ResolvedRegion != "" {
		return it.ResolvedRegion
	}
	return it.Region
}
