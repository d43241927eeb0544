package planner

import (
	"fmt"
	"slices"

	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/layout"
)

// Snapshot is a detached copy of a resolved layout. Nothing in it aliases
// planner state.
type Snapshot struct {
	Device    catalog.Device
	Template  string
	Regions   []layout.Region
	Items     []*layout.Item
	Usage     []layout.RegionUsage
	Findings  []Finding
	Conflicts []layout.SpanConflict
}

// Finding is the list of validator messages attached to one item.
type Finding struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Messages []string `json:"messages"`
}

// Snapshot returns a deep copy of the current layout.
func (p *Planner) Snapshot() Snapshot {
	return Snapshot{
		Device:    p.device,
		Template:  p.template,
		Regions:   p.regions.Regions(),
		Items:     p.forest.Clone().Roots(),
		Usage:     p.Usage(),
		Findings:  p.Findings(),
		Conflicts: slices.Clone(p.conflicts),
	}
}

// Item returns a copy of the item with id, including its subtree.
func (p *Planner) Item(id int) (*layout.Item, error) {
	it, _, ok := p.forest.Find(id)
	if !ok {
		return nil, wrap(fmt.Errorf("%w: %d", layout.ErrUnknownItem, id), "get item")
	}
	return it.Clone(), nil
}

// Export returns the ordered, de-duplicated record view of the layout.
func (p *Planner) Export() []layout.Record {
	return layout.Export(p.forest)
}

// Findings lists the items that carry validator messages, in pre-order.
func (p *Planner) Findings() []Finding {
	var out []Finding
	for _, it := range layout.Findings(p.forest) {
		out = append(out, Finding{ID: it.ID, Name: it.Name, Messages: slices.Clone(it.Errors)})
	}
	return out
}

// Valid reports whether the layout has no findings.
func (p *Planner) Valid() bool { return len(layout.Findings(p.forest)) == 0 }

// Usage reports occupancy for every region in table order.
func (p *Planner) Usage() []layout.RegionUsage {
	return layout.UsageAll(p.forest, p.regions)
}

// Conflicts returns the span conflicts of the last import.
func (p *Planner) Conflicts() []layout.SpanConflict { return slices.Clone(p.conflicts) }
