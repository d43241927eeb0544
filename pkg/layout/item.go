package layout

import (
	"slices"

	"github.com/matzehuels/flashplan/pkg/size"
)

// Kind distinguishes partitions from groups.
type Kind int

const (
	// KindPartition is a leaf placement unit with its own size text.
	KindPartition Kind = iota
	// KindGroup owns an ordered list of children and spans exactly their bytes.
	KindGroup
)

// String returns "partition" or "group".
func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "partition"
}

// ParseKind maps "group" to KindGroup and anything else to KindPartition.
func ParseKind(s string) Kind {
	if s == "group" {
		return KindGroup
	}
	return KindPartition
}

// Item is a partition or a group in a [Forest].
//
// Region holds the explicitly assigned region ("" inherits from the parent
// group); ResolvedRegion, Size and, for groups, SizeStr are written by
// [Resolve]. Errors is rebuilt by every [Validate] call.
type Item struct {
	ID   int
	Kind Kind
	Name string

	Region         string
	ResolvedRegion string

	// Address is meaningful only when Pinned is set. An unpinned item is
	// placed automatically on the next resolve, which pins it.
	Address uint64
	Pinned  bool

	Size    uint64
	SizeStr string

	// Partition only.
	Device string
	Span   []string

	// Group only. Children are owned exclusively by this group.
	Children []*Item

	Errors []string
}

// IsGroup reports whether the item is a group.
func (it *Item) IsGroup() bool { return it.Kind == KindGroup }

// End returns the first address past the item, saturating at
// math.MaxUint64.
func (it *Item) End() uint64 { return size.Add(it.Address, it.Size) }

// Pin fixes the item at addr.
func (it *Item) Pin(addr uint64) {
	it.Address = addr
	it.Pinned = true
}

// Unpin releases the item for automatic placement.
func (it *Item) Unpin() {
	it.Address = 0
	it.Pinned = false
}

// AddError records a finding once.
func (it *Item) AddError(msg string) {
	if !slices.Contains(it.Errors, msg) {
		it.Errors = append(it.Errors, msg)
	}
}

// ChildNames returns the non-empty names of the direct children.
func (it *Item) ChildNames() []string {
	var names []string
	for _, c := range it.Children {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}

// HasChild reports whether id is a direct child of the item.
func (it *Item) HasChild(id int) bool {
	for _, c := range it.Children {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Contains reports whether id is anywhere in the item's subtree.
func (it *Item) Contains(id int) bool {
	for _, c := range it.Children {
		if c.ID == id || c.Contains(id) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the item and its subtree.
func (it *Item) Clone() *Item {
	c := *it
	c.Span = slices.Clone(it.Span)
	c.Errors = slices.Clone(it.Errors)
	c.Children = nil
	for _, ch := range it.Children {
		c.Children = append(c.Children, ch.Clone())
	}
	return &c
}

// Spec describes an item to be created, as found in templates and project
// files. Children are only honored for groups.
type Spec struct {
	Kind     Kind
	Name     string
	SizeStr  string
	Region   string
	Device   string
	Span     []string
	Address  *uint64
	Children []Spec
}
