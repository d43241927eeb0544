package catalog

import "github.com/matzehuels/flashplan/pkg/layout"

// Builtin returns a catalog holding the stock Nordic devices and templates.
// Each call returns a new catalog.
func Builtin() *Catalog {
	c := New()
	for _, d := range builtinDevices {
		if err := c.AddDevice(d); err != nil {
			panic(err)
		}
	}
	for _, t := range builtinTemplates {
		if err := c.AddTemplate(t); err != nil {
			panic(err)
		}
	}
	return c
}

var builtinDevices = []Device{
	{
		Key:      "nrf9160",
		Name:     "nRF9160 SIAA",
		PadSize:  0x200,
		Regions:  []layout.Region{{Name: "flash_primary", Start: 0x0, Size: 0x100000}},
		Template: "fota",
	},
	{
		Key:      "nrf52840",
		Name:     "nRF52840",
		PadSize:  0x200,
		Regions:  []layout.Region{{Name: "flash_primary", Start: 0x0, Size: 0x100000}},
		Template: "fota",
	},
	{
		Key:     "nrf5340",
		Name:    "nRF5340 (Multi-Core)",
		PadSize: 0x200,
		Regions: []layout.Region{
			{Name: "flash_primary", Start: 0x0, Size: 0x100000},
			{Name: "sram_primary", Start: 0x20000000, Size: 0x80000},
			{Name: "flash_primary_net", Start: 0x01000000, Size: 0x40000},
			{Name: "sram_primary_net", Start: 0x21000000, Size: 0x10000},
		},
		Template: "nrf5340_multi",
	},
	{
		Key:      "nrf54l15",
		Name:     "nRF54L15 (Example)",
		PadSize:  0x800,
		Regions:  []layout.Region{{Name: "flash_primary", Start: 0x0, Size: 0x180000}},
		Template: "fota",
	},
}

func p(name, sizeStr, region string) layout.Spec {
	return layout.Spec{Kind: layout.KindPartition, Name: name, SizeStr: sizeStr, Region: region}
}

func g(name, region string, children ...layout.Spec) layout.Spec {
	return layout.Spec{Kind: layout.KindGroup, Name: name, Region: region, Children: children}
}

// Pad partitions carry no size; the planner fills in the device pad size.
var builtinTemplates = []Template{
	{
		Key:         "fota",
		Name:        "FOTA (single flash)",
		Description: "MCUboot with primary and secondary slots in internal flash",
		Items: []layout.Spec{
			p("mcuboot", "48K", "flash_primary"),
			p("mcuboot_pad", "", "flash_primary"),
			p("slot_0", "480K", "flash_primary"),
			p("slot_1", "480K", "flash_primary"),
			p("storage", "16K", "flash_primary"),
		},
	},
	{
		Key:         "fota_external",
		Name:        "FOTA (external flash)",
		Description: "MCUboot with the secondary slot on external SPI flash",
		Items: []layout.Spec{
			p("mcuboot", "48K", "flash_primary"),
			g("mcuboot_primary", "flash_primary",
				p("mcuboot_pad", "", ""),
				p("app", "900K", ""),
			),
			{Name: "mcuboot_secondary", SizeStr: "960K", Region: "external_flash", Device: "MX25R64"},
			p("storage", "16K", "flash_primary"),
		},
	},
	{
		Key:         "nrf5340_multi",
		Name:        "nRF5340 multi-core",
		Description: "Application and network core images with MCUboot",
		Items: []layout.Spec{
			p("mcuboot", "48K", "flash_primary"),
			g("mcuboot_primary_app", "flash_primary",
				p("mcuboot_pad", "", ""),
				p("slot_0_app", "440K", ""),
			),
			p("slot_1_app", "448K", "flash_primary"),
			g("mcuboot_primary_net", "flash_primary_net",
				p("slot_0_net", "128K", ""),
			),
			p("slot_1_net", "128K", "flash_primary_net"),
			p("storage", "16K", "flash_primary"),
		},
	},
}
