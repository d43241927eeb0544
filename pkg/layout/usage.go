package layout

// RegionUsage summarizes how much of a region the layout occupies.
type RegionUsage struct {
	Region Region

	// MaxAddress is the highest end address of any placed, non-empty item
	// in the region, or the region start when nothing is placed.
	MaxAddress uint64

	Used     uint64
	Free     uint64
	Overflow uint64 // bytes past the region end; zero when it fits
}

// Overflowing reports whether the layout runs past the region end.
func (u RegionUsage) Overflowing() bool { return u.Overflow > 0 }

// Usage computes the occupancy of r. Children count as well as roots, so
// a pinned child outside its group is still seen.
func Usage(f *Forest, r Region) RegionUsage {
	u := RegionUsage{Region: r, MaxAddress: r.Start}
	f.Walk(func(it, _ *Item) {
		if it.ResolvedRegion == r.Name && it.Pinned && it.Size > 0 && it.End() > u.MaxAddress {
			u.MaxAddress = it.End()
		}
	})
	u.Used = u.MaxAddress - r.Start
	if u.Used > r.Size {
		u.Overflow = u.Used - r.Size
	} else {
		u.Free = r.Size - u.Used
	}
	return u
}

// UsageAll computes [Usage] for every region in table order.
func UsageAll(f *Forest, rt *RegionTable) []RegionUsage {
	out := make([]RegionUsage, 0, rt.Len())
	for _, r := range rt.Regions() {
		out = append(out, Usage(f, r))
	}
	return out
}
