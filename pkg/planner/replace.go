package planner

import (
	"slices"

	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/layout"
)

const externalFlashSize = catalog.DefaultExternalFlashSize

// SetDevice switches to another device. Custom regions are kept; the old
// defaults are replaced by the new device's, except where a custom region
// already uses the name. Items are left as they are.
func (p *Planner) SetDevice(key string) error {
	return p.mutate("set_device", func() error {
		return p.selectDevice(key)
	})
}

// SwitchDevice is SetDevice followed by loading the new device's default
// template, as one mutation. Nothing changes if either step fails.
func (p *Planner) SwitchDevice(key string) error {
	return p.mutate("switch_device", func() error {
		prevDevice, prevRegions := p.device, p.regions
		if err := p.selectDevice(key); err != nil {
			return err
		}
		tmpl := p.catalog.DefaultTemplate(key)
		t, err := p.catalog.Template(tmpl)
		if err == nil {
			err = p.loadSpecs(t.Items)
		}
		if err != nil {
			p.device, p.regions = prevDevice, prevRegions
			return wrap(err, "load template %q", tmpl)
		}
		p.template = t.Key
		return nil
	})
}

func (p *Planner) selectDevice(key string) error {
	d, err := p.catalog.Device(key)
	if err != nil {
		return wrap(err, "select device %q", key)
	}

	rt := layout.NewRegionTable()
	for _, r := range p.regions.Custom() {
		if err := rt.Add(r); err != nil {
			return wrap(err, "select device %q", key)
		}
	}
	for _, r := range d.Regions {
		if rt.Has(r.Name) {
			continue
		}
		r.Default = true
		if err := rt.Add(r); err != nil {
			return wrap(err, "select device %q", key)
		}
	}

	p.device, p.regions = d, rt
	p.logger.Info("selected device", "device", d.Key, "regions", rt.Len())
	return nil
}

// LoadTemplate replaces the forest with the template's items. The external
// flash region is added when the template uses it.
func (p *Planner) LoadTemplate(key string) error {
	return p.mutate("load_template", func() error {
		t, err := p.catalog.Template(key)
		if err != nil {
			return wrap(err, "load template %q", key)
		}
		if err := p.loadSpecs(t.Items); err != nil {
			return err
		}
		p.template = t.Key
		return nil
	})
}

// LoadItems replaces the forest with items built from specs, as read from
// a project file.
func (p *Planner) LoadItems(specs []layout.Spec) error {
	return p.mutate("load_items", func() error {
		return p.loadSpecs(specs)
	})
}

func (p *Planner) loadSpecs(specs []layout.Spec) error {
	f := layout.NewForest()
	for _, s := range specs {
		if err := validateSpec(s); err != nil {
			return err
		}
		if _, err := f.Add(p.withPadSize(s), layout.NoParent); err != nil {
			return wrap(err, "load item %q", s.Name)
		}
	}

	rt := p.regions.Clone()
	used := catalog.Template{Items: specs}.Regions()
	if err := p.ensureExternalFlash(rt, used); err != nil {
		return wrap(err, "add external flash")
	}

	p.forest, p.regions = f, rt
	p.template = ""
	p.conflicts = nil
	p.logger.Info("loaded layout", "items", f.Len())
	return nil
}

// Import replaces the forest with one rebuilt from flat records, as read
// from a partition manager file. The import is resolved once without size
// alignment so the recorded values survive unchanged; later edits align
// as usual. Span conflicts are returned and kept until the next forest
// replacement.
func (p *Planner) Import(records []layout.Record) ([]layout.SpanConflict, error) {
	opts := p.opts
	opts.AlignSizes = false

	err := p.mutateWith("import", opts, func() error {
		f, conflicts, err := layout.Import(records)
		if err != nil {
			return wrap(err, "import %d records", len(records))
		}

		used := make([]string, 0, len(records))
		for _, r := range records {
			used = append(used, r.Region)
		}
		rt := p.regions.Clone()
		if err := p.ensureExternalFlash(rt, used); err != nil {
			return wrap(err, "add external flash")
		}

		p.forest, p.regions = f, rt
		p.template = ""
		p.conflicts = conflicts
		if len(conflicts) > 0 {
			p.logger.Warn("span conflicts in import", "count", len(conflicts))
		}
		p.logger.Info("imported layout", "records", len(records))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(p.conflicts), nil
}

// Reflow unpins every root in region, or in all regions when region is
// empty, so the next resolve packs them again in forest order.
func (p *Planner) Reflow(region string) error {
	return p.mutate("reflow", func() error {
		if region != "" && !p.regions.Has(region) {
			return wrap(layout.ErrUnknownRegion, "reflow %q", region)
		}
		for _, it := range p.forest.Roots() {
			if region == "" || it.ResolvedRegion == region {
				it.Unpin()
			}
		}
		return nil
	})
}
