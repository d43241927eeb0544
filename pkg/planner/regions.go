package planner

import (
	fperrors "github.com/matzehuels/flashplan/pkg/errors"
	"github.com/matzehuels/flashplan/pkg/layout"
)

// AddRegion adds a custom region.
func (p *Planner) AddRegion(name string, start, size uint64) error {
	return p.mutate("add_region", func() error {
		if err := fperrors.ValidateRegionName(name); err != nil {
			return err
		}
		if err := p.regions.Add(layout.Region{Name: name, Start: start, Size: size}); err != nil {
			return wrap(err, "add region %q", name)
		}
		p.logger.Info("added region", "region", name, "start", start, "size", size)
		return nil
	})
}

// RemoveRegion removes a custom region. Items assigned to it stay in the
// forest but are no longer placed.
func (p *Planner) RemoveRegion(name string) error {
	return p.mutate("remove_region", func() error {
		if err := p.regions.Remove(name); err != nil {
			return wrap(err, "remove region %q", name)
		}
		p.logger.Info("removed region", "region", name)
		return nil
	})
}

// UpdateRegion moves or resizes a region, default or custom.
func (p *Planner) UpdateRegion(name string, start, size uint64) error {
	return p.mutate("update_region", func() error {
		if err := p.regions.Update(name, start, size); err != nil {
			return wrap(err, "update region %q", name)
		}
		return nil
	})
}

// Regions returns the region table in order.
func (p *Planner) Regions() []layout.Region { return p.regions.Regions() }

// ensureExternalFlash adds the external flash region when names mentions
// it and the table lacks it.
func (p *Planner) ensureExternalFlash(rt *layout.RegionTable, names []string) error {
	if rt.Has(layout.RegionExternalFlash) {
		return nil
	}
	for _, n := range names {
		if n == layout.RegionExternalFlash {
			p.logger.Info("adding external flash region", "size", externalFlashSize)
			return rt.Add(layout.Region{Name: layout.RegionExternalFlash, Start: 0, Size: externalFlashSize})
		}
	}
	return nil
}
