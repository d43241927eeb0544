package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flashplan/pkg/layout"
)

func TestBuiltinDevices(t *testing.T) {
	c := Builtin()

	var keys []string
	for _, d := range c.Devices() {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"nrf9160", "nrf52840", "nrf5340", "nrf54l15"}, keys)

	d, err := c.Device("nrf54l15")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x800), d.PadSize)
	assert.Equal(t, uint64(0x180000), d.Regions[0].Size)

	d, err = c.Device("nrf5340")
	require.NoError(t, err)
	rt, err := d.RegionTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"flash_primary", "sram_primary", "flash_primary_net", "sram_primary_net"}, rt.Names())
	net, _ := rt.Get("flash_primary_net")
	assert.Equal(t, uint64(0x01000000), net.Start)
	assert.True(t, net.Default)

	_, err = c.Device("esp32")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestBuiltinTemplates(t *testing.T) {
	c := Builtin()

	tpl, err := c.Template("fota_external")
	require.NoError(t, err)
	assert.Equal(t, []string{"flash_primary", "external_flash"}, tpl.Regions())
	assert.Equal(t, layout.KindGroup, tpl.Items[1].Kind)
	assert.Equal(t, "MX25R64", tpl.Items[2].Device)

	tpl, err = c.Template("nrf5340_multi")
	require.NoError(t, err)
	assert.Equal(t, []string{"flash_primary", "flash_primary_net"}, tpl.Regions())

	_, err = c.Template("nope")
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	assert.Equal(t, "nrf5340_multi", c.DefaultTemplate("nrf5340"))
	assert.Equal(t, "fota", c.DefaultTemplate("nrf9160"))
	assert.Equal(t, "fota", c.DefaultTemplate("unknown"))
}

func TestBuiltinReturnsFreshCatalog(t *testing.T) {
	a := Builtin()
	require.NoError(t, a.AddTemplate(Template{Key: "extra"}))
	_, err := Builtin().Template("extra")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

const userCatalog = `
[[device]]
key = "nrf9161"
name = "nRF9161"
pad_size = "0x200"

  [[device.region]]
  name = "flash_primary"
  start = "0x0"
  size = "1M"

[[device]]
key = "nrf52840"
pad_size = "512"
template = "minimal"

  [[device.region]]
  name = "flash_primary"
  size = "0x80000"

[[template]]
key = "minimal"
description = "one app slot"

  [[template.item]]
  name = "app"
  size = "256K"
  region = "flash_primary"

  [[template.item]]
  type = "group"
  name = "boot"
  region = "flash_primary"
  address = "0x40000"

    [[template.item.children]]
    name = "mcuboot_pad"

    [[template.item.children]]
    name = "image"
    size = "64K"
    span = ["a", "b"]
`

func TestMergeUserCatalog(t *testing.T) {
	f, err := Decode(strings.NewReader(userCatalog))
	require.NoError(t, err)

	c := Builtin()
	require.NoError(t, c.Merge(f))

	var keys []string
	for _, d := range c.Devices() {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"nrf9160", "nrf52840", "nrf5340", "nrf54l15", "nrf9161"}, keys)

	d, err := c.Device("nrf9161")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x100000), d.Regions[0].Size)
	assert.Equal(t, "fota", c.DefaultTemplate("nrf9161"))

	d, err = c.Device("nrf52840")
	require.NoError(t, err)
	assert.Equal(t, "nrf52840", d.Name, "name defaults to key")
	assert.Equal(t, uint64(512), d.PadSize)
	assert.Equal(t, uint64(0x80000), d.Regions[0].Size)
	assert.Equal(t, "minimal", c.DefaultTemplate("nrf52840"))

	tpl, err := c.Template("minimal")
	require.NoError(t, err)
	require.Len(t, tpl.Items, 2)
	boot := tpl.Items[1]
	assert.Equal(t, layout.KindGroup, boot.Kind)
	require.NotNil(t, boot.Address)
	assert.Equal(t, uint64(0x40000), *boot.Address)
	require.Len(t, boot.Children, 2)
	assert.Equal(t, []string{"a", "b"}, boot.Children[1].Span)
	assert.Nil(t, tpl.Items[0].Address)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("[[device]]\nkey = \"x\"\nflash = \"1M\"\n"))
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Contains(t, err.Error(), "flash")

	_, err = Decode(strings.NewReader("not toml ="))
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestMergeRejectsInvalidDevices(t *testing.T) {
	c := New()
	err := c.Merge(&File{Devices: []DeviceDef{{Key: "bare"}}})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	err = c.Merge(&File{Devices: []DeviceDef{{Key: "zero", Regions: []RegionDef{{Name: "flash_primary", Size: "0"}}}}})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	err = c.Merge(&File{Templates: []TemplateDef{{}}})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.Templates(), 3)

	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(userCatalog), 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Templates(), 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
