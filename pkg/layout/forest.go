package layout

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownItem is returned when an item id is not in the forest.
	ErrUnknownItem = errors.New("unknown item")

	// ErrNotGroup is returned when an item must be a group but is not.
	ErrNotGroup = errors.New("item is not a group")

	// ErrInvalidMove is returned by [Forest.Move] for moves onto the item
	// itself or into its own subtree.
	ErrInvalidMove = errors.New("invalid move")
)

// NoParent places a new item at the root of the forest.
const NoParent = -1

// Position says where [Forest.Move] puts the dragged item relative to the
// target.
type Position int

const (
	Before Position = iota
	After
	Inside
)

// ParsePosition maps "before", "after" and "inside".
func ParsePosition(s string) (Position, error) {
	switch s {
	case "before":
		return Before, nil
	case "after":
		return After, nil
	case "inside":
		return Inside, nil
	}
	return 0, fmt.Errorf("%w: position %q", ErrInvalidMove, s)
}

// Forest is the ordered tree of items. Root order is placement order.
//
// Item ids are handed out monotonically and never reused while the forest
// lives; replacing the forest (template load, import) starts a new one.
type Forest struct {
	roots  []*Item
	nextID int
}

// NewForest returns an empty forest.
func NewForest() *Forest { return &Forest{} }

// Roots returns the root items in order. The slice is a copy; the items
// are not.
func (f *Forest) Roots() []*Item { return slices.Clone(f.roots) }

// NextID returns the id the next added item will get.
func (f *Forest) NextID() int { return f.nextID }

// Len returns the number of items in the forest, children included.
func (f *Forest) Len() int {
	n := 0
	f.Walk(func(*Item, *Item) { n++ })
	return n
}

// Walk visits every item in pre-order with its parent (nil for roots).
func (f *Forest) Walk(fn func(it, parent *Item)) {
	var walk func(items []*Item, parent *Item)
	walk = func(items []*Item, parent *Item) {
		for _, it := range items {
			fn(it, parent)
			walk(it.Children, it)
		}
	}
	walk(f.roots, nil)
}

// All returns every item in pre-order.
func (f *Forest) All() []*Item {
	var out []*Item
	f.Walk(func(it, _ *Item) { out = append(out, it) })
	return out
}

// Parents builds an id to parent index. Roots are absent.
func (f *Forest) Parents() map[int]*Item {
	idx := make(map[int]*Item)
	f.Walk(func(it, parent *Item) {
		if parent != nil {
			idx[it.ID] = parent
		}
	})
	return idx
}

// Find returns the item with id and its parent (nil for roots).
func (f *Forest) Find(id int) (item, parent *Item, ok bool) {
	f.Walk(func(it, p *Item) {
		if !ok && it.ID == id {
			item, parent, ok = it, p, true
		}
	})
	return item, parent, ok
}

// RootOf returns the root whose subtree holds id, and its root index.
func (f *Forest) RootOf(id int) (*Item, int, bool) {
	for i, r := range f.roots {
		if r.ID == id || r.Contains(id) {
			return r, i, true
		}
	}
	return nil, -1, false
}

// Add creates an item from spec, including any group children, and appends
// it to the root list or to the group parentID.
func (f *Forest) Add(spec Spec, parentID int) (*Item, error) {
	var parent *Item
	if parentID != NoParent {
		p, _, ok := f.Find(parentID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownItem, parentID)
		}
		if !p.IsGroup() {
			return nil, fmt.Errorf("%w: %d", ErrNotGroup, parentID)
		}
		parent = p
	}

	it := f.build(spec)
	if parent == nil {
		f.roots = append(f.roots, it)
	} else {
		parent.Children = append(parent.Children, it)
	}
	return it, nil
}

func (f *Forest) build(spec Spec) *Item {
	it := f.newItem(spec.Kind, spec.Name)
	it.SizeStr = spec.SizeStr
	it.Region = spec.Region
	if spec.Address != nil {
		it.Pin(*spec.Address)
	}
	if it.IsGroup() {
		for _, cs := range spec.Children {
			it.Children = append(it.Children, f.build(cs))
		}
	} else {
		it.Device = spec.Device
		it.Span = slices.Clone(spec.Span)
	}
	return it
}

func (f *Forest) newItem(kind Kind, name string) *Item {
	it := &Item{ID: f.nextID, Kind: kind, Name: name}
	f.nextID++
	return it
}

// Remove deletes the item with id; removing a group drops its subtree.
func (f *Forest) Remove(id int) error {
	_, parent, ok := f.Find(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, id)
	}
	f.detach(id, parent)
	return nil
}

func (f *Forest) detach(id int, parent *Item) *Item {
	list := &f.roots
	if parent != nil {
		list = &parent.Children
	}
	i := slices.IndexFunc(*list, func(it *Item) bool { return it.ID == id })
	it := (*list)[i]
	*list = slices.Delete(*list, i, i+1)
	return it
}

// Move relocates dragged relative to target. Inside appends dragged to the
// target group's children; Inside on a partition behaves like After.
// Moving an item onto itself or a group into its own subtree fails.
func (f *Forest) Move(draggedID, targetID int, pos Position) error {
	dragged, dParent, ok := f.Find(draggedID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, draggedID)
	}
	target, _, ok := f.Find(targetID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, targetID)
	}
	if draggedID == targetID {
		return fmt.Errorf("%w: item %d onto itself", ErrInvalidMove, draggedID)
	}
	if dragged.Contains(targetID) {
		return fmt.Errorf("%w: group %d into its own subtree", ErrInvalidMove, draggedID)
	}

	it := f.detach(draggedID, dParent)

	if pos == Inside && target.IsGroup() {
		target.Children = append(target.Children, it)
		return nil
	}

	// The target's parent may have changed position, not identity.
	_, tParent, _ := f.Find(targetID)
	list := &f.roots
	if tParent != nil {
		list = &tParent.Children
	}
	i := slices.IndexFunc(*list, func(x *Item) bool { return x.ID == targetID })
	if pos != Before {
		i++
	}
	*list = slices.Insert(*list, i, it)
	return nil
}

// Clone returns a deep copy that continues the same id sequence.
func (f *Forest) Clone() *Forest {
	c := &Forest{nextID: f.nextID}
	for _, r := range f.roots {
		c.roots = append(c.roots, r.Clone())
	}
	return c
}
