// Package project reads and writes flashplan project files.
//
// A project file names a device, optional extra or resized regions, and
// either a template to start from or an explicit item tree:
//
//	device = "nrf52840"
//	align = true
//
//	[[region]]
//	name = "flash_storage"
//	start = "0xF8000"
//	size = "32K"
//
//	[[item]]
//	name = "mcuboot"
//	size = "48K"
//
//	[[item]]
//	type = "group"
//	name = "mcuboot_primary"
//
//	  [[item.children]]
//	  name = "mcuboot_pad"
//
//	  [[item.children]]
//	  name = "app"
//	  size = "400K"
//
// Items use the same definitions as catalog templates. When both a
// template and items are given, the items win.
package project

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/size"
)

// ErrInvalidProject is returned for project files that cannot be used.
var ErrInvalidProject = errors.New("invalid project")

// Project is the TOML form of a layout.
type Project struct {
	Device   string              `toml:"device"`
	Template string              `toml:"template,omitempty"`
	Align    *bool               `toml:"align,omitempty"`
	PageSize string              `toml:"page_size,omitempty"`
	PadName  string              `toml:"pad_name,omitempty"`
	Regions  []catalog.RegionDef `toml:"region,omitempty"`
	Items    []catalog.ItemDef   `toml:"item,omitempty"`
}

// Decode reads a project. Unknown keys are rejected.
func Decode(r io.Reader) (*Project, error) {
	var p Project
	md, err := toml.NewDecoder(r).Decode(&p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidProject, strings.Join(keys, ", "))
	}
	if p.Device == "" {
		return nil, fmt.Errorf("%w: device is required", ErrInvalidProject)
	}
	return &p, nil
}

// Load decodes the project file at path.
func Load(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Encode writes the project as TOML.
func (p *Project) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(p)
}

// Save writes the project to path.
func (p *Project) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Options returns the planner options the project asks for.
func (p *Project) Options() []planner.Option {
	var opts []planner.Option
	if p.Align != nil {
		opts = append(opts, planner.WithAlignment(*p.Align))
	}
	if p.PageSize != "" {
		opts = append(opts, planner.WithPageSize(size.Parse(p.PageSize)))
	}
	if p.PadName != "" {
		opts = append(opts, planner.WithPadName(p.PadName))
	}
	return opts
}

// Planner builds a planner for the project. The given options act as
// defaults that the project's own settings override. Regions named like a
// device default resize that default; other regions are added. Then the
// items, or else the template, are loaded.
func (p *Project) Planner(c *catalog.Catalog, opts ...planner.Option) (*planner.Planner, error) {
	all := append(slices.Clone(opts), p.Options()...)
	pl, err := planner.New(c, p.Device, all...)
	if err != nil {
		return nil, err
	}

	for _, def := range p.Regions {
		r := def.Region()
		exists := slices.ContainsFunc(pl.Regions(), func(have layout.Region) bool { return have.Name == r.Name })
		if exists {
			err = pl.UpdateRegion(r.Name, r.Start, r.Size)
		} else {
			err = pl.AddRegion(r.Name, r.Start, r.Size)
		}
		if err != nil {
			return nil, err
		}
	}

	switch {
	case len(p.Items) > 0:
		specs := make([]layout.Spec, len(p.Items))
		for i, it := range p.Items {
			specs[i] = it.Spec()
		}
		err = pl.LoadItems(specs)
	case p.Template != "":
		err = pl.LoadTemplate(p.Template)
	}
	if err != nil {
		return nil, err
	}
	return pl, nil
}

// FromPlanner captures a planner's layout as a project. Custom regions are
// written, as are defaults whose bounds no longer match the device. With
// addresses set, every placed item keeps its address; otherwise the layout
// is packed again when loaded.
func FromPlanner(pl *planner.Planner, addresses bool) *Project {
	snap := pl.Snapshot()
	opts := pl.Options()

	p := &Project{Device: snap.Device.Key}
	if !opts.AlignSizes {
		align := false
		p.Align = &align
	}
	if opts.PageSize != layout.DefaultPageSize {
		p.PageSize = size.FormatHex(opts.PageSize, 0)
	}
	if opts.PadName != layout.DefaultPadName {
		p.PadName = opts.PadName
	}

	for _, r := range snap.Regions {
		if r.Default && slices.Contains(snap.Device.Regions, layout.Region{Name: r.Name, Start: r.Start, Size: r.Size}) {
			continue
		}
		p.Regions = append(p.Regions, catalog.RegionDef{
			Name:  r.Name,
			Start: size.FormatHex(r.Start, 0),
			Size:  size.FormatForInput(r.Size),
		})
	}

	for _, it := range snap.Items {
		p.Items = append(p.Items, itemDef(it, addresses))
	}
	return p
}

func itemDef(it *layout.Item, addresses bool) catalog.ItemDef {
	d := catalog.ItemDef{Name: it.Name, Region: it.Region}
	if addresses && it.Pinned && it.ResolvedRegion != "" {
		d.Address = size.FormatHex(it.Address, 0)
	}
	if it.IsGroup() {
		d.Type = layout.KindGroup.String()
		for _, c := range it.Children {
			d.Children = append(d.Children, itemDef(c, false))
		}
		return d
	}
	d.Size = it.SizeStr
	d.Device = it.Device
	d.Span = slices.Clone(it.Span)
	return d
}
