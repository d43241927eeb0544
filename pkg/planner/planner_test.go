package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flashplan/pkg/catalog"
	fperrors "github.com/matzehuels/flashplan/pkg/errors"
	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/observability"
)

func newPlanner(t *testing.T, device string, opts ...Option) *Planner {
	t.Helper()
	p, err := New(catalog.Builtin(), device, opts...)
	require.NoError(t, err)
	return p
}

func withTemplate(t *testing.T, device, template string) *Planner {
	t.Helper()
	p := newPlanner(t, device)
	require.NoError(t, p.LoadTemplate(template))
	return p
}

// byName indexes the snapshot's items, children included. Later items
// with the same name win.
func byName(s Snapshot) map[string]*layout.Item {
	out := make(map[string]*layout.Item)
	var walk func(items []*layout.Item)
	walk = func(items []*layout.Item) {
		for _, it := range items {
			out[it.Name] = it
			walk(it.Children)
		}
	}
	walk(s.Items)
	return out
}

func idOf(t *testing.T, p *Planner, name string) int {
	t.Helper()
	it, ok := byName(p.Snapshot())[name]
	require.True(t, ok, "no item %q", name)
	return it.ID
}

func TestNewUnknownDevice(t *testing.T) {
	_, err := New(catalog.Builtin(), "esp32")
	require.Error(t, err)
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeDeviceNotFound))
	assert.ErrorIs(t, err, catalog.ErrUnknownDevice)
}

func TestLoadTemplateFOTA(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")
	items := byName(p.Snapshot())

	want := map[string][2]uint64{
		"mcuboot":     {0x0, 0xC000},
		"mcuboot_pad": {0xC000, 0x200},
		"slot_0":      {0xD000, 0x78000},
		"slot_1":      {0x85000, 0x78000},
		"storage":     {0xFD000, 0x4000},
	}
	for name, w := range want {
		assert.Equal(t, w[0], items[name].Address, name)
		assert.Equal(t, w[1], items[name].Size, name)
	}
	assert.Equal(t, "512", items["mcuboot_pad"].SizeStr)
	assert.Equal(t, "fota", p.Template())

	findings := p.Findings()
	require.Len(t, findings, 1)
	assert.Equal(t, "storage", findings[0].Name)
	assert.False(t, p.Valid())
}

func TestCommitSizeReflowsDownstream(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")

	require.NoError(t, p.Commit(idOf(t, p, "slot_0"), FieldSize, "256K"))

	items := byName(p.Snapshot())
	assert.Equal(t, uint64(0x0), items["mcuboot"].Address)
	assert.Equal(t, uint64(0xC000), items["mcuboot_pad"].Address)
	assert.Equal(t, uint64(0xD000), items["slot_0"].Address)
	assert.Equal(t, uint64(0x4D000), items["slot_1"].Address)
	assert.Equal(t, uint64(0xC5000), items["storage"].Address)
	assert.True(t, p.Valid())
}

func TestApplyDraftDoesNotResolve(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")
	id := idOf(t, p, "slot_0")

	require.NoError(t, p.ApplyDraft(id, FieldSize, "25"))
	it, err := p.Item(id)
	require.NoError(t, err)
	assert.Equal(t, "25", it.SizeStr)
	assert.Equal(t, uint64(0x78000), it.Size)
	assert.Equal(t, uint64(0x85000), byName(p.Snapshot())["slot_1"].Address)

	require.NoError(t, p.Commit(id, FieldSize, "256K"))
	assert.Equal(t, uint64(0x4D000), byName(p.Snapshot())["slot_1"].Address)
}

func TestCommitGroupSizeRejected(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota_external")
	id := idOf(t, p, "mcuboot_primary")

	err := p.Commit(id, FieldSize, "1M")
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeGroupSize))
	assert.ErrorIs(t, err, ErrGroupSize)
	assert.ErrorIs(t, p.ApplyDraft(id, FieldSize, "1M"), ErrGroupSize)

	it, _ := p.Item(id)
	assert.Equal(t, uint64(0xE1200), it.Size)
}

func TestPadNameSetsPadSize(t *testing.T) {
	p := newPlanner(t, "nrf54l15")
	id, err := p.AddItem(layout.Spec{Name: "pad", SizeStr: "1K", Region: layout.RegionFlashPrimary}, layout.NoParent)
	require.NoError(t, err)
	it, _ := p.Item(id)
	require.Equal(t, "4K", it.SizeStr)

	require.NoError(t, p.ApplyDraft(id, FieldName, "mcuboot_pad"))
	it, _ = p.Item(id)
	assert.Equal(t, "2048", it.SizeStr, "drafts apply the pad size too")
	assert.Equal(t, uint64(0x1000), it.Size, "but do not resolve")

	require.NoError(t, p.Commit(id, FieldName, "mcuboot_pad"))
	it, _ = p.Item(id)
	assert.Equal(t, "2048", it.SizeStr)
	assert.Equal(t, uint64(0x800), it.Size)
}

func TestCommitRejectsInvalidName(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")
	id := idOf(t, p, "storage")

	err := p.Commit(id, FieldName, "my storage")
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeInvalidName))
	it, _ := p.Item(id)
	assert.Equal(t, "storage", it.Name)
}

func TestCommitAddress(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota_external")
	storage := idOf(t, p, "storage")

	require.NoError(t, p.Commit(storage, FieldAddress, "0xF0000"))
	it, _ := p.Item(storage)
	assert.True(t, it.Pinned)
	assert.Equal(t, uint64(0xF0000), it.Address)

	require.NoError(t, p.Commit(storage, FieldAddress, "auto"))
	it, _ = p.Item(storage)
	assert.Equal(t, uint64(0xEE000), it.Address, "auto re-places behind the cursor")

	err := p.Commit(idOf(t, p, "app"), FieldAddress, "0x0")
	assert.ErrorIs(t, err, ErrChildAddress)
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeInvalidField))
}

func TestCommitSpanAndDevice(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota_external")
	sec := idOf(t, p, "mcuboot_secondary")

	require.NoError(t, p.Commit(sec, FieldSpan, " app, ,mcuboot_pad "))
	require.NoError(t, p.Commit(sec, FieldDevice, " W25Q64 "))
	it, _ := p.Item(sec)
	assert.Equal(t, []string{"app", "mcuboot_pad"}, it.Span)
	assert.Equal(t, "W25Q64", it.Device)

	group := idOf(t, p, "mcuboot_primary")
	assert.ErrorIs(t, p.Commit(group, FieldSpan, "x"), ErrPartitionField)
	assert.ErrorIs(t, p.Commit(group, FieldDevice, "x"), ErrPartitionField)

	assert.ErrorIs(t, p.Commit(sec, Field("colour"), "red"), ErrUnknownField)
	assert.True(t, fperrors.IsNotFound(p.Commit(999, FieldName, "x")))
}

func TestCommitRegionMovesItem(t *testing.T) {
	p := withTemplate(t, "nrf5340", "nrf5340_multi")
	id := idOf(t, p, "storage")

	require.NoError(t, p.Commit(id, FieldRegion, "flash_primary_net"))
	it, _ := p.Item(id)
	// Its pinned address is kept, so the validator flags it outside the
	// network core flash.
	assert.Equal(t, "flash_primary_net", it.ResolvedRegion)
	assert.NotEmpty(t, it.Errors)

	require.NoError(t, p.Commit(id, FieldAddress, ""))
	it, _ = p.Item(id)
	assert.Equal(t, uint64(0x01040000), it.Address)
}

func TestStrictSizes(t *testing.T) {
	p, err := New(catalog.Builtin(), "nrf9160", WithStrictSizes())
	require.NoError(t, err)
	require.NoError(t, p.LoadTemplate("fota"))
	id := idOf(t, p, "storage")

	err = p.Commit(id, FieldSize, "lots")
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeInvalidSize))

	lax := withTemplate(t, "nrf9160", "fota")
	require.NoError(t, lax.Commit(idOf(t, lax, "storage"), FieldSize, "lots"))
	it, _ := lax.Item(idOf(t, lax, "storage"))
	assert.Zero(t, it.Size, "malformed sizes coerce to zero")
}

func TestParseField(t *testing.T) {
	f, err := ParseField("sizeStr")
	require.NoError(t, err)
	assert.Equal(t, FieldSize, f)

	f, err = ParseField(" Name ")
	require.NoError(t, err)
	assert.Equal(t, FieldName, f)

	_, err = ParseField("colour")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSplitSpan(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitSpan("a, b"))
	assert.Nil(t, SplitSpan(" , "))
}

func TestAddItem(t *testing.T) {
	p := newPlanner(t, "nrf9160")
	gid, err := p.AddItem(layout.Spec{Kind: layout.KindGroup, Name: "boot", Region: layout.RegionFlashPrimary, Children: []layout.Spec{
		{Name: "mcuboot_pad"},
	}}, layout.NoParent)
	require.NoError(t, err)

	_, err = p.AddItem(layout.Spec{Name: "app", SizeStr: "64K"}, gid)
	require.NoError(t, err)

	g, _ := p.Item(gid)
	require.Len(t, g.Children, 2)
	assert.Equal(t, "512", g.Children[0].SizeStr)
	assert.Equal(t, uint64(0x10200), g.Size)

	_, err = p.AddItem(layout.Spec{Name: "x"}, g.Children[1].ID)
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeInvalidMove))

	_, err = p.AddItem(layout.Spec{Name: "bad name"}, layout.NoParent)
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeInvalidName))

	_, err = p.AddItem(layout.Spec{Kind: layout.KindGroup, Name: "g", Children: []layout.Spec{{Name: "0bad"}}}, layout.NoParent)
	assert.Error(t, err)
	assert.Len(t, p.Snapshot().Items, 1, "rejected adds leave the forest alone")
}

func TestRemoveAndMoveItem(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")

	require.NoError(t, p.RemoveItem(idOf(t, p, "slot_1")))
	assert.True(t, fperrors.IsNotFound(p.RemoveItem(999)))
	assert.Equal(t, uint64(0xFD000), byName(p.Snapshot())["storage"].Address, "removal does not reflow")

	storage := idOf(t, p, "storage")
	require.NoError(t, p.MoveItem(storage, idOf(t, p, "mcuboot"), layout.Before))
	assert.Equal(t, "storage", p.Snapshot().Items[0].Name)

	err := p.MoveItem(storage, storage, layout.After)
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeInvalidMove))
}

func TestReflowPacksRegion(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")
	require.NoError(t, p.RemoveItem(idOf(t, p, "slot_0")))
	assert.Equal(t, uint64(0x85000), byName(p.Snapshot())["slot_1"].Address, "removal leaves a hole")

	require.NoError(t, p.Reflow(layout.RegionFlashPrimary))
	items := byName(p.Snapshot())
	assert.Equal(t, uint64(0xD000), items["slot_1"].Address)
	assert.Equal(t, uint64(0x85000), items["storage"].Address)

	assert.True(t, fperrors.IsNotFound(p.Reflow("nowhere")))
	require.NoError(t, p.Reflow(""))
}

func TestRegions(t *testing.T) {
	p := newPlanner(t, "nrf9160")

	require.NoError(t, p.AddRegion("sram_primary", 0x20000000, 0x40000))
	err := p.AddRegion("sram_primary", 0, 1)
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeDuplicateRegion))
	assert.True(t, fperrors.IsConflict(err))
	assert.True(t, fperrors.Is(p.AddRegion("bad name", 0, 1), fperrors.ErrCodeInvalidRegion))
	assert.True(t, fperrors.Is(p.AddRegion("empty", 0, 0), fperrors.ErrCodeInvalidRegion))

	assert.True(t, fperrors.Is(p.RemoveRegion(layout.RegionFlashPrimary), fperrors.ErrCodeDefaultRegion))
	assert.True(t, fperrors.Is(p.RemoveRegion("nope"), fperrors.ErrCodeRegionNotFound))

	require.NoError(t, p.UpdateRegion(layout.RegionFlashPrimary, 0, 0x80000))
	require.NoError(t, p.RemoveRegion("sram_primary"))

	regions := p.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, uint64(0x80000), regions[0].Size)
}

func TestRegionUpdateRevalidates(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")
	require.False(t, p.Valid())

	require.NoError(t, p.UpdateRegion(layout.RegionFlashPrimary, 0, 0x200000))
	assert.True(t, p.Valid())
}

func TestSetDeviceKeepsCustomRegions(t *testing.T) {
	p := newPlanner(t, "nrf9160")
	require.NoError(t, p.AddRegion("sram_primary", 0x20000000, 0x10000))
	require.NoError(t, p.AddRegion("scratch", 0x30000000, 0x1000))

	require.NoError(t, p.SetDevice("nrf5340"))
	names := make([]string, 0)
	for _, r := range p.Regions() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"sram_primary", "scratch", "flash_primary", "flash_primary_net", "sram_primary_net"}, names)

	sram := p.Regions()[0]
	assert.Equal(t, uint64(0x10000), sram.Size, "the custom region wins the name")
	assert.False(t, sram.Default)
	assert.Equal(t, "nrf5340", p.Device().Key)
	assert.Equal(t, "512", p.PadSize())

	err := p.SetDevice("esp32")
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeDeviceNotFound))
	assert.Equal(t, "nrf5340", p.Device().Key)
}

func TestSwitchDeviceLoadsDefaultTemplate(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")

	require.NoError(t, p.SwitchDevice("nrf5340"))
	assert.Equal(t, "nrf5340", p.Device().Key)
	assert.Equal(t, "nrf5340_multi", p.Template())

	tmpl, err := p.Catalog().Template("nrf5340_multi")
	require.NoError(t, err)
	assert.Len(t, p.Snapshot().Items, len(tmpl.Items))
	assert.True(t, p.Valid(), "%v", p.Findings())
}

func TestSwitchDeviceRollsBack(t *testing.T) {
	cat := catalog.Builtin()
	require.NoError(t, cat.AddDevice(catalog.Device{
		Key:      "custom",
		Name:     "Custom",
		PadSize:  0x200,
		Regions:  []layout.Region{{Name: layout.RegionFlashPrimary, Start: 0, Size: 0x200000}},
		Template: "missing",
	}))
	p, err := New(cat, "nrf9160")
	require.NoError(t, err)
	require.NoError(t, p.LoadTemplate("fota"))
	before := p.Snapshot()

	err = p.SwitchDevice("custom")
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeTemplateNotFound))
	assert.Equal(t, "nrf9160", p.Device().Key)
	assert.Equal(t, before.Regions, p.Snapshot().Regions)
	assert.Equal(t, "fota", p.Template())

	err = p.SwitchDevice("esp32")
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeDeviceNotFound))
}

func TestLoadTemplateExternalFlash(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota_external")

	var ext layout.Region
	for _, r := range p.Regions() {
		if r.Name == layout.RegionExternalFlash {
			ext = r
		}
	}
	assert.Equal(t, uint64(0x800000), ext.Size)
	assert.False(t, ext.Default)

	items := byName(p.Snapshot())
	assert.Equal(t, uint64(0xC000), items["mcuboot_primary"].Address)
	assert.Equal(t, uint64(0xC200), items["app"].Address)
	assert.Equal(t, uint64(0xEE000), items["storage"].Address)
	assert.Equal(t, uint64(0), items["mcuboot_secondary"].Address)
	assert.True(t, p.Valid())

	err := p.LoadTemplate("nope")
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeTemplateNotFound))
	assert.Equal(t, "fota_external", p.Template())
}

func TestLoadTemplateMultiCore(t *testing.T) {
	p := withTemplate(t, "nrf5340", "nrf5340_multi")
	items := byName(p.Snapshot())

	assert.Equal(t, uint64(0x7B000), items["slot_1_app"].Address)
	assert.Equal(t, uint64(0xEB000), items["storage"].Address)
	assert.Equal(t, uint64(0x01000000), items["slot_0_net"].Address)
	assert.Equal(t, uint64(0x01020000), items["slot_1_net"].Address)
	assert.Equal(t, "flash_primary_net", items["slot_0_net"].ResolvedRegion)
	assert.True(t, p.Valid())
}

func TestLoadItems(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")
	require.NoError(t, p.LoadItems([]layout.Spec{
		{Name: "app", SizeStr: "100K", Region: layout.RegionFlashPrimary},
		{Name: "ext", SizeStr: "1M", Region: layout.RegionExternalFlash},
	}))

	s := p.Snapshot()
	assert.Empty(t, s.Template)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "100K", s.Items[0].SizeStr)
	assert.Len(t, s.Regions, 2)
}

func addr(v uint64) *uint64 { return &v }

func TestImport(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")

	conflicts, err := p.Import([]layout.Record{
		{Name: "app", Size: 5000, Address: addr(0), Region: layout.RegionFlashPrimary},
		{Name: "data", Size: 0x1000, Address: addr(0x2000), Region: layout.RegionFlashPrimary},
		{Name: "ext", Size: 0x1000, Address: addr(0), Region: layout.RegionExternalFlash},
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Empty(t, p.Template())

	items := byName(p.Snapshot())
	assert.Equal(t, uint64(5000), items["app"].Size, "imports are not aligned")
	assert.Equal(t, "5000", items["app"].SizeStr)
	assert.Len(t, p.Regions(), 2)

	require.NoError(t, p.Commit(items["data"].ID, FieldSize, "4K"))
	items = byName(p.Snapshot())
	assert.Equal(t, uint64(8192), items["app"].Size, "later edits align again")
	assert.Equal(t, "8K", items["app"].SizeStr)
	assert.Equal(t, uint64(0x2000), items["data"].Address)
}

func TestImportConflictsAndErrors(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")

	conflicts, err := p.Import([]layout.Record{
		{Name: "alias", Size: 0x1000, Address: addr(0x200), Region: layout.RegionFlashPrimary, Span: []string{"app"}},
		{Name: "primary", Size: 0x1200, Address: addr(0), Region: layout.RegionFlashPrimary, Span: []string{"pad", "app"}},
		{Name: "pad", Size: 0x200, Address: addr(0), Region: layout.RegionFlashPrimary},
		{Name: "app", Size: 0x1000, Address: addr(0x200), Region: layout.RegionFlashPrimary},
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, conflicts, p.Snapshot().Conflicts)

	before := p.Export()
	_, err = p.Import([]layout.Record{{Name: "a"}, {Name: "a"}})
	assert.True(t, fperrors.Is(err, fperrors.ErrCodeInvalidFormat))
	assert.Equal(t, before, p.Export(), "failed imports keep the old forest")

	require.NoError(t, p.LoadTemplate("fota"))
	assert.Empty(t, p.Conflicts())
}

func TestSnapshotIsDetached(t *testing.T) {
	p := withTemplate(t, "nrf9160", "fota")
	s := p.Snapshot()
	s.Items[0].Name = "changed"
	s.Regions[0].Size = 1

	assert.Equal(t, "mcuboot", p.Snapshot().Items[0].Name)
	assert.Equal(t, uint64(0x100000), p.Regions()[0].Size)
	assert.Len(t, s.Usage, 1)
	assert.True(t, s.Usage[0].Overflowing())
}

type recorder struct {
	observability.NoopPlannerHooks
	resolves int
	ops      []string
	failed   int
}

func (r *recorder) OnMutation(op string, err error) {
	r.ops = append(r.ops, op)
	if err != nil {
		r.failed++
	}
}

func (r *recorder) OnResolve(string, int, int, time.Duration) { r.resolves++ }

func TestEveryMutationResolvesOnce(t *testing.T) {
	rec := &recorder{}
	observability.SetPlannerHooks(rec)
	t.Cleanup(observability.Reset)

	p := newPlanner(t, "nrf9160")
	assert.Equal(t, 1, rec.resolves)

	require.NoError(t, p.LoadTemplate("fota"))
	require.NoError(t, p.Commit(idOf(t, p, "slot_0"), FieldSize, "256K"))
	require.NoError(t, p.ApplyDraft(idOf(t, p, "slot_0"), FieldSize, "1"))
	assert.Error(t, p.RemoveRegion(layout.RegionFlashPrimary))

	assert.Equal(t, 3, rec.resolves)
	assert.Equal(t, []string{"load_template", "commit", "remove_region"}, rec.ops)
	assert.Equal(t, 1, rec.failed)
}
