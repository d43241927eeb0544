package layout

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/flashplan/pkg/size"
)

var (
	// ErrDuplicateRegion is returned by [RegionTable.Add] when the name is taken.
	ErrDuplicateRegion = errors.New("region already exists")

	// ErrUnknownRegion is returned when a region name is not in the table.
	ErrUnknownRegion = errors.New("unknown region")

	// ErrDefaultRegion is returned by [RegionTable.Remove] for device defaults.
	ErrDefaultRegion = errors.New("default regions cannot be removed")

	// ErrInvalidRegion is returned for regions with an empty name or zero size.
	ErrInvalidRegion = errors.New("invalid region")
)

// Well-known region names.
const (
	RegionFlashPrimary  = "flash_primary"
	RegionExternalFlash = "external_flash"
)

// FlashPrefix marks flash-class regions, which are subject to page alignment.
const FlashPrefix = "flash_"

// Region is a named, bounded address range.
type Region struct {
	Name    string
	Start   uint64
	Size    uint64
	Default bool // device default, protected from removal
}

// End returns the first address past the region.
// Ends past the address space saturate at math.MaxUint64.
func (r Region) End() uint64 { return size.Add(r.Start, r.Size) }

// Contains reports whether [addr, addr+n) lies inside the region.
func (r Region) Contains(addr, n uint64) bool {
	end := r.End()
	return addr >= r.Start && addr <= end && n <= end-addr
}

// IsFlash reports whether a region name denotes a flash-class region.
func IsFlash(name string) bool { return strings.HasPrefix(name, FlashPrefix) }

// Priority orders regions for export: primary flash first, then external
// flash, then everything else.
func Priority(name string) int {
	switch name {
	case RegionFlashPrimary:
		return 0
	case RegionExternalFlash:
		return 1
	default:
		return 2
	}
}

// RegionTable holds regions keyed by name, in insertion order.
// The zero value is an empty, usable table.
type RegionTable struct {
	order   []string
	regions map[string]*Region
}

// NewRegionTable returns an empty table.
func NewRegionTable() *RegionTable {
	return &RegionTable{regions: make(map[string]*Region)}
}

// Add inserts r. It fails if the name is empty, the size is zero or the
// name is already taken.
func (t *RegionTable) Add(r Region) error {
	if r.Name == "" || r.Size == 0 {
		return fmt.Errorf("%w: %q size %d", ErrInvalidRegion, r.Name, r.Size)
	}
	if t.regions == nil {
		t.regions = make(map[string]*Region)
	}
	if _, ok := t.regions[r.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRegion, r.Name)
	}
	t.regions[r.Name] = &r
	t.order = append(t.order, r.Name)
	return nil
}

// Remove deletes a custom region. Default regions are protected.
func (t *RegionTable) Remove(name string) error {
	r, ok := t.regions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, name)
	}
	if r.Default {
		return fmt.Errorf("%w: %s", ErrDefaultRegion, name)
	}
	delete(t.regions, name)
	t.order = slices.DeleteFunc(t.order, func(n string) bool { return n == name })
	return nil
}

// Update replaces the start address and size of an existing region.
func (t *RegionTable) Update(name string, start, n uint64) error {
	r, ok := t.regions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, name)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q size 0", ErrInvalidRegion, name)
	}
	r.Start, r.Size = start, n
	return nil
}

// Get returns the named region.
func (t *RegionTable) Get(name string) (Region, bool) {
	r, ok := t.regions[name]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Has reports whether the table contains name.
func (t *RegionTable) Has(name string) bool {
	_, ok := t.regions[name]
	return ok
}

// Names returns region names in insertion order.
func (t *RegionTable) Names() []string { return slices.Clone(t.order) }

// Regions returns copies of all regions in insertion order.
func (t *RegionTable) Regions() []Region {
	out := make([]Region, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, *t.regions[n])
	}
	return out
}

// Len returns the number of regions.
func (t *RegionTable) Len() int { return len(t.order) }

// Custom returns the regions that are not device defaults.
func (t *RegionTable) Custom() []Region {
	var out []Region
	for _, r := range t.Regions() {
		if !r.Default {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *RegionTable) Clone() *RegionTable {
	c := NewRegionTable()
	for _, r := range t.Regions() {
		_ = c.Add(r)
	}
	return c
}
