package layout

import (
	"github.com/matzehuels/flashplan/pkg/size"
)

const (
	// DefaultPageSize is the flash erase page used for alignment.
	DefaultPageSize uint64 = 4096

	// DefaultPadName is the boot-loader pad partition, which is never aligned.
	DefaultPadName = "mcuboot_pad"
)

// Options controls [Resolve].
type Options struct {
	// AlignSizes rounds flash partition sizes up to PageSize. Interactive
	// edits set it; reloading an externally authored table does not, so
	// the provided values survive unchanged.
	AlignSizes bool

	// PageSize defaults to DefaultPageSize.
	PageSize uint64

	// PadName defaults to DefaultPadName.
	PadName string
}

func (o Options) withDefaults() Options {
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PadName == "" {
		o.PadName = DefaultPadName
	}
	return o
}

// Resolve computes sizes, regions and addresses for every item in f.
//
// Pass one propagates regions downward and sizes upward. Pass two assigns
// addresses per region in table order; items whose region is not in rt are
// left unplaced. Placed items become pinned, so resolving an already
// resolved forest again with the same options changes nothing.
//
// Resolve never fails. Layout defects are left for [Validate] to report.
func Resolve(f *Forest, rt *RegionTable, opts Options) {
	opts = opts.withDefaults()
	for _, it := range f.roots {
		propagate(it, "", opts)
	}
	for _, r := range rt.Regions() {
		place(f.roots, r, opts)
	}
}

// propagate resolves the item's region and size, children first.
func propagate(it *Item, inherited string, opts Options) {
	it.ResolvedRegion = it.Region
	if it.ResolvedRegion == "" {
		it.ResolvedRegion = inherited
	}

	if it.IsGroup() {
		var sum uint64
		for _, c := range it.Children {
			propagate(c, it.ResolvedRegion, opts)
			sum = size.Add(sum, c.Size)
		}
		it.Size = sum
		it.SizeStr = size.FormatForInput(sum)
		return
	}

	parsed := size.Parse(it.SizeStr)
	it.Size = parsed
	if opts.AlignSizes && IsFlash(it.ResolvedRegion) && it.Name != opts.PadName && parsed > 0 {
		if aligned := size.AlignUp(parsed, opts.PageSize); aligned != parsed {
			it.Size = aligned
			it.SizeStr = size.FormatForInput(aligned)
		}
	}
}

// place walks the roots of region r behind a cursor.
func place(roots []*Item, r Region, opts Options) {
	cursor := r.Start
	flash := IsFlash(r.Name)

	for _, it := range roots {
		if it.ResolvedRegion != r.Name {
			continue
		}
		if !it.Pinned {
			addr := cursor
			if flash && it.Name != opts.PadName {
				addr = size.AlignUp(addr, opts.PageSize)
			}
			it.Pin(addr)
		}
		cursor = it.End()

		if it.IsGroup() {
			placeChildren(it)
		}
	}
}

// placeChildren lays a group's subtree out back to back from the group's
// address, so the group covers exactly the union of its children.
func placeChildren(g *Item) {
	off := g.Address
	for _, c := range g.Children {
		c.ResolvedRegion = g.ResolvedRegion
		c.Pin(off)
		off = size.Add(off, c.Size)
		if c.IsGroup() {
			placeChildren(c)
		}
	}
}
