package layout

import (
	"slices"
	"sort"
)

// Record is the flat, name-keyed view of an item used for export and
// import. On export, Span of a group lists its children's names; on import
// a record becomes a group when its Span names other records, and Group is
// ignored.
type Record struct {
	Name    string
	Group   bool
	Address *uint64
	Size    uint64
	Region  string
	Device  string
	Span    []string
}

// Export returns the resolved items as ordered records.
//
// Items are collected in pre-order. Unnamed items are skipped, partitions
// are de-duplicated by name (the first occurrence wins) and groups are
// always kept. Records are sorted by region priority (see [Priority]),
// then by region name among the remaining regions, then by address with
// unplaced items last, and partitions sort before groups on equal
// addresses.
func Export(f *Forest) []Record {
	seen := make(map[string]bool)
	var out []Record
	f.Walk(func(it, _ *Item) {
		if it.Name == "" {
			return
		}
		if !it.IsGroup() && seen[it.Name] {
			return
		}
		seen[it.Name] = true
		out = append(out, recordOf(it))
	})

	sort.SliceStable(out, func(i, j int) bool { return exportLess(out[i], out[j]) })
	return out
}

func recordOf(it *Item) Record {
	rec := Record{
		Name:   it.Name,
		Group:  it.IsGroup(),
		Size:   it.Size,
		Region: regionOf(it),
		Device: it.Device,
	}
	if it.Pinned {
		addr := it.Address
		rec.Address = &addr
	}
	if it.IsGroup() {
		rec.Span = it.ChildNames()
	} else {
		rec.Span = slices.Clone(it.Span)
	}
	return rec
}

func exportLess(a, b Record) bool {
	pa, pb := Priority(a.Region), Priority(b.Region)
	if pa != pb {
		return pa < pb
	}
	if pa > 1 && a.Region != b.Region {
		return a.Region < b.Region
	}
	aa, aok := addressOf(a)
	ba, bok := addressOf(b)
	if aok != bok {
		return aok
	}
	if aa != ba {
		return aa < ba
	}
	return !a.Group && b.Group
}

func addressOf(r Record) (uint64, bool) {
	if r.Address == nil {
		return 0, false
	}
	return *r.Address, true
}
