package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFOTA(t *testing.T) {
	rt := flashTable(t)
	f, items := fotaForest(t)

	Resolve(f, rt, Options{AlignSizes: true})

	want := []struct {
		name string
		addr uint64
		size uint64
	}{
		{"mcuboot", 0x0, 0xC000},
		{"mcuboot_pad", 0xC000, 0x200},
		{"slot_0", 0xD000, 0x78000},
		{"slot_1", 0x85000, 0x78000},
		{"storage", 0xFD000, 0x4000},
	}
	for _, w := range want {
		it := items[w.name]
		assert.True(t, it.Pinned, w.name)
		assert.Equal(t, w.addr, it.Address, "%s address", w.name)
		assert.Equal(t, w.size, it.Size, "%s size", w.name)
		assert.Equal(t, RegionFlashPrimary, it.ResolvedRegion)
	}
	assert.Equal(t, "0x200", items["mcuboot_pad"].SizeStr, "pad size text is never rewritten")
}

func TestResolveAlignsFlashSizes(t *testing.T) {
	rt := flashTable(t)
	require.NoError(t, rt.Add(Region{Name: "sram_primary", Start: 0x20000000, Size: 0x80000}))

	f := NewForest()
	odd := mustAdd(t, f, part("odd", "5000"), NoParent)
	pad := mustAdd(t, f, part("mcuboot_pad", "5000"), NoParent)
	ram := mustAdd(t, f, Spec{Name: "ram", SizeStr: "5000", Region: "sram_primary"}, NoParent)

	Resolve(f, rt, Options{AlignSizes: true})

	assert.Equal(t, uint64(8192), odd.Size)
	assert.Equal(t, "8K", odd.SizeStr, "aligned size text is regenerated")
	assert.Equal(t, uint64(5000), pad.Size)
	assert.Equal(t, "5000", pad.SizeStr)
	assert.Equal(t, uint64(0x2000), pad.Address, "pad address is not aligned but follows the cursor")
	assert.Equal(t, uint64(5000), ram.Size, "non-flash regions are never aligned")
	assert.Equal(t, uint64(0x20000000), ram.Address)
}

func TestResolveWithoutAlignmentKeepsValues(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	a := mustAdd(t, f, part("a", "5000"), NoParent)
	b := mustAdd(t, f, part("b", "100"), NoParent)

	Resolve(f, rt, Options{AlignSizes: false})

	assert.Equal(t, uint64(5000), a.Size)
	assert.Equal(t, "5000", a.SizeStr)
	assert.Equal(t, uint64(0), a.Address)
	// Addresses are still page aligned in flash regions.
	assert.Equal(t, uint64(0x2000), b.Address)
}

func TestResolveIsIdempotent(t *testing.T) {
	for _, align := range []bool{true, false} {
		rt := flashTable(t)
		f, _ := fotaForest(t)
		mustAdd(t, f, Spec{Kind: KindGroup, Name: "grp", Region: RegionFlashPrimary, Children: []Spec{
			{Name: "c1", SizeStr: "3000"},
			{Name: "c2", SizeStr: "1K"},
		}}, NoParent)

		Resolve(f, rt, Options{AlignSizes: align})
		first := snapshot(f)
		Resolve(f, rt, Options{AlignSizes: align})
		assert.Equal(t, first, snapshot(f), "align=%v", align)
	}
}

func TestResolveGroups(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	boot := mustAdd(t, f, part("mcuboot", "48K"), NoParent)
	grp := mustAdd(t, f, Spec{Kind: KindGroup, Name: "mcuboot_primary", Region: RegionFlashPrimary, Children: []Spec{
		{Name: "mcuboot_pad", SizeStr: "0x200"},
		{Name: "app", SizeStr: "900K"},
	}}, NoParent)
	after := mustAdd(t, f, part("storage", "16K"), NoParent)

	Resolve(f, rt, Options{AlignSizes: true})

	require.Len(t, grp.Children, 2)
	pad, app := grp.Children[0], grp.Children[1]

	assert.Equal(t, uint64(0xC000), boot.Size)
	assert.Equal(t, uint64(0xC000), grp.Address)
	assert.Equal(t, RegionFlashPrimary, pad.ResolvedRegion, "children inherit the group region")
	assert.Equal(t, uint64(0xC000), pad.Address)
	assert.Equal(t, uint64(0xC200), app.Address, "children are packed without alignment")
	assert.Equal(t, uint64(900*1024), app.Size)
	assert.Equal(t, pad.Size+app.Size, grp.Size)
	assert.Equal(t, "922112", grp.SizeStr)
	assert.Equal(t, grp.End(), app.End(), "group covers exactly its children")
	assert.Equal(t, uint64(0xEE000), after.Address, "next root is aligned after the group")
}

func TestResolveNestedGroups(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	outer := mustAdd(t, f, Spec{Kind: KindGroup, Name: "outer", Region: RegionFlashPrimary, Children: []Spec{
		{Kind: KindGroup, Name: "inner", Children: []Spec{
			{Name: "a", SizeStr: "4K"},
			{Name: "b", SizeStr: "4K"},
		}},
		{Name: "c", SizeStr: "4K"},
	}}, NoParent)

	Resolve(f, rt, Options{AlignSizes: true})

	inner := outer.Children[0]
	assert.Equal(t, uint64(0x3000), outer.Size)
	assert.Equal(t, uint64(0x2000), inner.Size)
	assert.Equal(t, uint64(0x0), inner.Children[0].Address)
	assert.Equal(t, uint64(0x1000), inner.Children[1].Address)
	assert.Equal(t, uint64(0x2000), outer.Children[1].Address)

	f.Walk(func(it, _ *Item) {
		if it.IsGroup() {
			var sum uint64
			for _, c := range it.Children {
				sum += c.Size
			}
			assert.Equal(t, sum, it.Size, "group %s size", it.Name)
		}
	})
}

func TestResolveHonorsPinnedAddresses(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	a := mustAdd(t, f, Spec{Name: "a", SizeStr: "4K", Region: RegionFlashPrimary, Address: addr(0x80000)}, NoParent)
	b := mustAdd(t, f, part("b", "4K"), NoParent)
	c := mustAdd(t, f, Spec{Name: "c", SizeStr: "4K", Region: RegionFlashPrimary, Address: addr(0x10)}, NoParent)
	d := mustAdd(t, f, part("d", "4K"), NoParent)

	Resolve(f, rt, Options{AlignSizes: true})

	assert.Equal(t, uint64(0x80000), a.Address)
	assert.Equal(t, uint64(0x81000), b.Address)
	assert.Equal(t, uint64(0x10), c.Address, "pinned addresses are never corrected")
	assert.Equal(t, uint64(0x2000), d.Address, "cursor follows the last item, even backwards")
}

func TestResolveZeroSizeAndUnknownRegion(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	a := mustAdd(t, f, part("a", "4K"), NoParent)
	empty := mustAdd(t, f, part("empty", ""), NoParent)
	b := mustAdd(t, f, part("b", "4K"), NoParent)
	lost := mustAdd(t, f, Spec{Name: "lost", SizeStr: "4K", Region: "nowhere"}, NoParent)
	none := mustAdd(t, f, Spec{Name: "none", SizeStr: "4K"}, NoParent)

	Resolve(f, rt, Options{AlignSizes: true})
	Validate(f, rt)

	assert.Equal(t, uint64(0x1000), a.End())
	assert.True(t, empty.Pinned)
	assert.Equal(t, uint64(0x1000), empty.Address)
	assert.Equal(t, uint64(0), empty.Size)
	assert.Equal(t, uint64(0x1000), b.Address, "zero-size items take no space")
	assert.False(t, lost.Pinned)
	assert.False(t, none.Pinned)
	assert.Empty(t, Findings(f))
}

func TestResolveAlignmentProperty(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	for i, s := range []string{"1", "4095", "4097", "10K", "0x1234", "1.3M", "7"} {
		mustAdd(t, f, part(string(rune('a'+i)), s), NoParent)
	}
	Resolve(f, rt, Options{AlignSizes: true})

	f.Walk(func(it, _ *Item) {
		assert.Zero(t, it.Size%DefaultPageSize, "%s size %d", it.Name, it.Size)
		assert.Zero(t, it.Address%DefaultPageSize, "%s address %#x", it.Name, it.Address)
	})
}

func TestResolveCustomPadAndPage(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	pad := mustAdd(t, f, part("boot_pad", "0x100"), NoParent)
	app := mustAdd(t, f, part("app", "100"), NoParent)

	Resolve(f, rt, Options{AlignSizes: true, PageSize: 0x800, PadName: "boot_pad"})

	assert.Equal(t, uint64(0x100), pad.Size)
	assert.Equal(t, uint64(0x800), app.Address)
	assert.Equal(t, uint64(0x800), app.Size)
}

func TestResolveSizesNearAddressSpaceEnd(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	top := mustAdd(t, f, part("top", "0xFFFFFFFFFFFFFFFF"), NoParent)
	grp := mustAdd(t, f, Spec{Kind: KindGroup, Name: "grp", Region: RegionFlashPrimary, Children: []Spec{
		{Name: "lo", SizeStr: "0xFFFFFFFFFFFFF000"},
		{Name: "hi", SizeStr: "0xFFFFFFFFFFFFF000"},
	}}, NoParent)
	after := mustAdd(t, f, part("after", "4K"), NoParent)

	Resolve(f, rt, Options{AlignSizes: true})

	assert.Equal(t, uint64(math.MaxUint64), top.Size)
	assert.Equal(t, "0xFFFFFFFFFFFFFFFF", top.SizeStr, "size text kept when alignment would overflow")
	assert.Equal(t, uint64(math.MaxUint64), top.End())

	assert.Equal(t, uint64(math.MaxUint64), grp.Size, "group sum saturates")
	assert.Equal(t, uint64(math.MaxUint64), grp.Address)
	assert.Equal(t, uint64(math.MaxUint64), grp.Children[1].Address)
	assert.Equal(t, uint64(math.MaxUint64), after.Address)
}
