// Package catalog holds device presets and layout templates.
//
// A [Catalog] starts from the built-in Nordic presets (see [Builtin]) and
// can be extended or overridden from TOML files (see [Catalog.LoadFile]).
// Lookups are by key, listings keep registration order.
package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/flashplan/pkg/layout"
)

var (
	// ErrUnknownDevice is returned when a device key is not in the catalog.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrUnknownTemplate is returned when a template key is not in the catalog.
	ErrUnknownTemplate = errors.New("unknown template")

	// ErrInvalidEntry is returned for catalog entries that cannot be used.
	ErrInvalidEntry = errors.New("invalid catalog entry")
)

// DefaultExternalFlashSize is the size of the external_flash region added
// on demand when a template or import references it.
const DefaultExternalFlashSize uint64 = 0x800000

// Device is a microcontroller preset: its default memory regions and the
// size of the boot-loader pad partition.
type Device struct {
	Key     string
	Name    string
	PadSize uint64

	// Regions are installed as default (non-removable) regions.
	Regions []layout.Region

	// Template is the key of the template suggested for this device.
	Template string
}

// RegionTable returns a fresh table holding the device's default regions.
func (d Device) RegionTable() (*layout.RegionTable, error) {
	rt := layout.NewRegionTable()
	for _, r := range d.Regions {
		r.Default = true
		if err := rt.Add(r); err != nil {
			return nil, fmt.Errorf("device %s: %w", d.Key, err)
		}
	}
	return rt, nil
}

// Template is a named starting layout.
type Template struct {
	Key         string
	Name        string
	Description string
	Items       []layout.Spec
}

// Regions returns the distinct explicit regions the template's items name,
// children included, in first-use order.
func (t Template) Regions() []string {
	var out []string
	var walk func(specs []layout.Spec)
	walk = func(specs []layout.Spec) {
		for _, s := range specs {
			if s.Region != "" && !slices.Contains(out, s.Region) {
				out = append(out, s.Region)
			}
			walk(s.Children)
		}
	}
	walk(t.Items)
	return out
}

// Catalog is a registry of devices and templates.
type Catalog struct {
	devices       map[string]Device
	deviceOrder   []string
	templates     map[string]Template
	templateOrder []string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		devices:   make(map[string]Device),
		templates: make(map[string]Template),
	}
}

// AddDevice registers d, replacing any device with the same key in place.
func (c *Catalog) AddDevice(d Device) error {
	if d.Key == "" {
		return fmt.Errorf("%w: device without key", ErrInvalidEntry)
	}
	if len(d.Regions) == 0 {
		return fmt.Errorf("%w: device %s has no regions", ErrInvalidEntry, d.Key)
	}
	if _, err := d.RegionTable(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if _, ok := c.devices[d.Key]; !ok {
		c.deviceOrder = append(c.deviceOrder, d.Key)
	}
	c.devices[d.Key] = d
	return nil
}

// AddTemplate registers t, replacing any template with the same key in place.
func (c *Catalog) AddTemplate(t Template) error {
	if t.Key == "" {
		return fmt.Errorf("%w: template without key", ErrInvalidEntry)
	}
	if _, ok := c.templates[t.Key]; !ok {
		c.templateOrder = append(c.templateOrder, t.Key)
	}
	c.templates[t.Key] = t
	return nil
}

// Device returns the device registered under key.
func (c *Catalog) Device(key string) (Device, error) {
	d, ok := c.devices[key]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrUnknownDevice, key)
	}
	return d, nil
}

// Template returns the template registered under key.
func (c *Catalog) Template(key string) (Template, error) {
	t, ok := c.templates[key]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
	}
	return t, nil
}

// Devices lists devices in registration order.
func (c *Catalog) Devices() []Device {
	out := make([]Device, 0, len(c.deviceOrder))
	for _, k := range c.deviceOrder {
		out = append(out, c.devices[k])
	}
	return out
}

// Templates lists templates in registration order.
func (c *Catalog) Templates() []Template {
	out := make([]Template, 0, len(c.templateOrder))
	for _, k := range c.templateOrder {
		out = append(out, c.templates[k])
	}
	return out
}

// DefaultTemplate returns the template suggested for a device, falling
// back to "fota".
func (c *Catalog) DefaultTemplate(deviceKey string) string {
	if d, ok := c.devices[deviceKey]; ok && d.Template != "" {
		return d.Template
	}
	return "fota"
}
