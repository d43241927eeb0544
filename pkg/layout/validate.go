package layout

import (
	"fmt"
	"slices"
	"sort"

	"github.com/matzehuels/flashplan/pkg/size"
)

// Validate clears every item's findings and re-checks the resolved forest
// for duplicate root names, out-of-bounds roots and illegal overlaps.
//
// Only root items are checked; group children are covered by their group.
// Roots whose region is not in rt, and roots without an address, are
// skipped by the bounds and overlap checks.
func Validate(f *Forest, rt *RegionTable) {
	f.Walk(func(it, _ *Item) { it.Errors = nil })

	checkDuplicateNames(f.roots)
	for _, r := range rt.Regions() {
		placed := placedIn(f.roots, r.Name)
		checkBounds(placed, r)
		checkOverlaps(placed)
	}
}

func checkDuplicateNames(roots []*Item) {
	byName := make(map[string][]*Item)
	for _, it := range roots {
		if it.Name != "" {
			byName[it.Name] = append(byName[it.Name], it)
		}
	}
	for _, it := range roots {
		if same := byName[it.Name]; len(same) > 1 {
			it.AddError(fmt.Sprintf("duplicate name %q: root item names must be unique", it.Name))
		}
	}
}

// placedIn returns the pinned roots of a region ordered by address, ties
// kept in forest order.
func placedIn(roots []*Item, region string) []*Item {
	var out []*Item
	for _, it := range roots {
		if it.ResolvedRegion == region && it.Pinned {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func checkBounds(placed []*Item, r Region) {
	for _, it := range placed {
		if !r.Contains(it.Address, it.Size) {
			it.AddError(fmt.Sprintf("%q [%s, %s) lies outside region %q [%s, %s)",
				it.Name, size.FormatHex(it.Address, 0), size.FormatHex(it.End(), 0),
				r.Name, size.FormatHex(r.Start, 0), size.FormatHex(r.End(), 0)))
		}
	}
}

func checkOverlaps(placed []*Item) {
	for i, a := range placed {
		for _, b := range placed[i+1:] {
			if a.End() <= b.Address {
				continue
			}
			if permissible(a, b) || permissible(b, a) {
				continue
			}
			a.AddError(fmt.Sprintf("%q overlaps %q", a.Name, b.Name))
			b.AddError(fmt.Sprintf("%q is overlapped by %q", b.Name, a.Name))
		}
	}
}

// permissible reports whether content may overlap container because
// container structurally covers it: content is a direct child of
// container, is named in container's coverage, or covers nothing but
// what container covers.
//
// A group covers its children's names; a partition covers its span.
func permissible(container, content *Item) bool {
	if container.HasChild(content.ID) {
		return true
	}
	outer := coverage(container)
	if len(outer) == 0 {
		return false
	}
	if content.Name != "" && slices.Contains(outer, content.Name) {
		return true
	}
	if content.IsGroup() && len(content.Children) > 0 {
		for _, c := range content.Children {
			if !container.HasChild(c.ID) && (c.Name == "" || !slices.Contains(outer, c.Name)) {
				return false
			}
		}
		return true
	}
	inner := coverage(content)
	if len(inner) == 0 {
		return false
	}
	for _, n := range inner {
		if !slices.Contains(outer, n) {
			return false
		}
	}
	return true
}

func coverage(it *Item) []string {
	if it.IsGroup() {
		return it.ChildNames()
	}
	return it.Span
}

// Findings returns the items that carry at least one finding, in pre-order.
func Findings(f *Forest) []*Item {
	var out []*Item
	f.Walk(func(it, _ *Item) {
		if len(it.Errors) > 0 {
			out = append(out, it)
		}
	})
	return out
}
