package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/size"
)

// File is the TOML form of a catalog:
//
//	[[device]]
//	key = "nrf9161"
//	name = "nRF9161"
//	pad_size = "0x200"
//	template = "fota"
//
//	  [[device.region]]
//	  name = "flash_primary"
//	  start = "0x0"
//	  size = "1M"
//
//	[[template]]
//	key = "minimal"
//
//	  [[template.item]]
//	  name = "app"
//	  size = "256K"
//	  region = "flash_primary"
//
// Sizes and addresses accept the same text as interactive edits.
type File struct {
	Devices   []DeviceDef   `toml:"device"`
	Templates []TemplateDef `toml:"template"`
}

type DeviceDef struct {
	Key      string      `toml:"key"`
	Name     string      `toml:"name"`
	PadSize  string      `toml:"pad_size,omitempty"`
	Template string      `toml:"template,omitempty"`
	Regions  []RegionDef `toml:"region"`
}

type RegionDef struct {
	Name  string `toml:"name"`
	Start string `toml:"start"`
	Size  string `toml:"size"`
}

type TemplateDef struct {
	Key         string    `toml:"key"`
	Name        string    `toml:"name"`
	Description string    `toml:"description,omitempty"`
	Items       []ItemDef `toml:"item"`
}

// ItemDef describes one template or project item. Type is "partition"
// (the default) or "group"; Children are only read for groups.
type ItemDef struct {
	Type     string    `toml:"type,omitempty"`
	Name     string    `toml:"name"`
	Size     string    `toml:"size,omitempty"`
	Region   string    `toml:"region,omitempty"`
	Device   string    `toml:"device,omitempty"`
	Address  string    `toml:"address,omitempty"`
	Span     []string  `toml:"span,omitempty"`
	Children []ItemDef `toml:"children,omitempty"`
}

// Spec converts the definition to a forest spec.
func (d ItemDef) Spec() layout.Spec {
	s := layout.Spec{
		Kind:    layout.ParseKind(strings.ToLower(d.Type)),
		Name:    d.Name,
		SizeStr: d.Size,
		Region:  d.Region,
		Device:  d.Device,
		Span:    d.Span,
	}
	if strings.TrimSpace(d.Address) != "" {
		a := size.Parse(d.Address)
		s.Address = &a
	}
	for _, c := range d.Children {
		s.Children = append(s.Children, c.Spec())
	}
	return s
}

// Region converts the definition to a layout region.
func (d RegionDef) Region() layout.Region {
	return layout.Region{Name: d.Name, Start: size.Parse(d.Start), Size: size.Parse(d.Size)}
}

// Device converts the definition to a device preset.
func (d DeviceDef) Device() Device {
	dev := Device{
		Key:      d.Key,
		Name:     d.Name,
		PadSize:  size.Parse(d.PadSize),
		Template: d.Template,
	}
	if dev.Name == "" {
		dev.Name = d.Key
	}
	for _, r := range d.Regions {
		dev.Regions = append(dev.Regions, r.Region())
	}
	return dev
}

// Template converts the definition to a template.
func (d TemplateDef) Template() Template {
	t := Template{Key: d.Key, Name: d.Name, Description: d.Description}
	if t.Name == "" {
		t.Name = d.Key
	}
	for _, it := range d.Items {
		t.Items = append(t.Items, it.Spec())
	}
	return t
}

// Decode reads a TOML catalog. Unknown keys are rejected so typos in
// field names do not silently drop values.
func Decode(r io.Reader) (*File, error) {
	var f File
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidEntry, strings.Join(keys, ", "))
	}
	return &f, nil
}

// Merge adds the file's devices and templates, overriding entries with
// the same key.
func (c *Catalog) Merge(f *File) error {
	for _, d := range f.Devices {
		if err := c.AddDevice(d.Device()); err != nil {
			return err
		}
	}
	for _, t := range f.Templates {
		if err := c.AddTemplate(t.Template()); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile decodes the TOML catalog at path and merges it.
func (c *Catalog) LoadFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return c.Merge(f)
}

// Load returns the built-in catalog extended by the file at path. An
// empty path yields the built-ins alone.
func Load(path string) (*Catalog, error) {
	c := Builtin()
	if path == "" {
		return c, nil
	}
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}
