package layout

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/matzehuels/flashplan/pkg/size"
)

var (
	// ErrDuplicateRecord is returned by [Import] when two records share a name.
	ErrDuplicateRecord = errors.New("duplicate record name")

	// ErrSpanCycle is returned by [Import] when spans form a cycle, so some
	// records would belong to no root.
	ErrSpanCycle = errors.New("span cycle")
)

// SpanConflict records a span entry that named an item already owned by
// another group. The claimant keeps its span as partition metadata instead
// of becoming a second owner.
type SpanConflict struct {
	Name     string // the contested record
	Owner    string // the group that owns it
	Claimant string // the record whose span also named it
}

// String formats the conflict for display.
func (c SpanConflict) String() string {
	return fmt.Sprintf("%q spans %q, already owned by %q", c.Claimant, c.Name, c.Owner)
}

// Import rebuilds a forest from flat records.
//
// Every record starts as a partition whose size text is the canonical form
// of Size and whose address, if present, is pinned. A record whose Span
// names at least one other record becomes a group owning those records, in
// span order. Ownership moves: a record claimed by a group is no longer a
// root and is never shared with a second group. Records with longer spans
// claim first, so a broad container wins over the narrower aliases inside
// it; a record that would claim an already owned name stays a partition,
// keeps its span as metadata and is reported as a [SpanConflict].
//
// Roots are ordered partitions first, then groups, each by address, with
// unpinned records treated as address 0 and ties kept in record order.
//
// Import fails on duplicate names and on span cycles.
func Import(records []Record) (*Forest, []SpanConflict, error) {
	f := NewForest()
	index := make(map[string]int, len(records))
	items := make([]*Item, len(records))

	for i, rec := range records {
		if _, dup := index[rec.Name]; dup {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateRecord, rec.Name)
		}
		index[rec.Name] = i

		it := f.newItem(KindPartition, rec.Name)
		it.Size = rec.Size
		it.SizeStr = size.FormatForInput(rec.Size)
		it.Region = rec.Region
		it.Device = rec.Device
		it.Span = slices.Clone(rec.Span)
		if rec.Address != nil {
			it.Pin(*rec.Address)
		}
		items[i] = it
	}

	claims := make([][]int, len(records))
	for i, rec := range records {
		for _, name := range rec.Span {
			j, ok := index[name]
			if ok && j != i && !slices.Contains(claims[i], j) {
				claims[i] = append(claims[i], j)
			}
		}
	}

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return len(claims[order[a]]) > len(claims[order[b]]) })

	owner := make(map[int]int)
	var conflicts []SpanConflict
	for _, i := range order {
		if len(claims[i]) == 0 {
			continue
		}
		var clash bool
		for _, j := range claims[i] {
			if o, taken := owner[j]; taken {
				conflicts = append(conflicts, SpanConflict{
					Name:     records[j].Name,
					Owner:    records[o].Name,
					Claimant: records[i].Name,
				})
				clash = true
			}
		}
		if clash {
			continue
		}

		g := items[i]
		g.Kind = KindGroup
		g.Span = nil
		for _, j := range claims[i] {
			owner[j] = i
			g.Children = append(g.Children, items[j])
		}
	}

	for i, it := range items {
		if _, owned := owner[i]; !owned {
			f.roots = append(f.roots, it)
		}
	}
	if f.Len() != len(items) {
		return nil, nil, fmt.Errorf("%w: %d records unreachable from any root", ErrSpanCycle, len(items)-f.Len())
	}

	sort.SliceStable(f.roots, func(a, b int) bool {
		ra, rb := f.roots[a], f.roots[b]
		if ra.IsGroup() != rb.IsGroup() {
			return !ra.IsGroup()
		}
		return ra.Address < rb.Address
	})

	return f, conflicts, nil
}
