package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBounds(t *testing.T) {
	rt := flashTable(t)
	f, items := fotaForest(t)
	Resolve(f, rt, Options{AlignSizes: true})
	Validate(f, rt)

	// storage ends at 0x101000, one page past the region.
	require.Len(t, items["storage"].Errors, 1)
	assert.Contains(t, items["storage"].Errors[0], "outside region")
	for _, n := range []string{"mcuboot", "mcuboot_pad", "slot_0", "slot_1"} {
		assert.Empty(t, items[n].Errors, n)
	}
}

func TestValidateBelowRegionStart(t *testing.T) {
	rt := NewRegionTable()
	require.NoError(t, rt.Add(Region{Name: "flash_primary_net", Start: 0x01000000, Size: 0x40000}))
	f := NewForest()
	low := mustAdd(t, f, Spec{Name: "low", SizeStr: "4K", Region: "flash_primary_net", Address: addr(0)}, NoParent)

	Resolve(f, rt, Options{AlignSizes: true})
	Validate(f, rt)

	assert.Len(t, low.Errors, 1)
}

func TestValidateDuplicateNames(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	a := mustAdd(t, f, part("dup", "4K"), NoParent)
	b := mustAdd(t, f, Spec{Name: "dup", SizeStr: "4K", Region: "elsewhere"}, NoParent)
	c := mustAdd(t, f, part("unique", "4K"), NoParent)
	grp := mustAdd(t, f, Spec{Kind: KindGroup, Name: "grp", Region: RegionFlashPrimary, Children: []Spec{
		{Name: "unique", SizeStr: "4K"},
	}}, NoParent)
	n1 := mustAdd(t, f, part("", "4K"), NoParent)
	n2 := mustAdd(t, f, part("", "4K"), NoParent)

	Resolve(f, rt, Options{AlignSizes: true})
	Validate(f, rt)

	require.Len(t, a.Errors, 1)
	require.Len(t, b.Errors, 1)
	assert.Contains(t, a.Errors[0], "duplicate name")
	assert.Empty(t, c.Errors, "children do not clash with roots")
	assert.Empty(t, grp.Children[0].Errors)
	assert.Empty(t, n1.Errors, "unnamed items are not duplicates")
	assert.Empty(t, n2.Errors)
}

func TestValidateClearsPreviousFindings(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	a := mustAdd(t, f, part("a", "4K"), NoParent)
	b := mustAdd(t, f, part("a", "4K"), NoParent)
	Resolve(f, rt, Options{AlignSizes: true})
	Validate(f, rt)
	require.NotEmpty(t, a.Errors)

	b.Name = "b"
	Validate(f, rt)
	assert.Empty(t, a.Errors)
	assert.Empty(t, b.Errors)
}

func TestValidateOverlap(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	grp := mustAdd(t, f, Spec{Kind: KindGroup, Name: "g", Region: RegionFlashPrimary, Children: []Spec{
		{Name: "mcuboot_pad", SizeStr: "0x200"},
	}}, NoParent)
	x := mustAdd(t, f, Spec{Name: "x", SizeStr: "0x1000", Region: RegionFlashPrimary, Address: addr(0x100)}, NoParent)

	Resolve(f, rt, Options{})
	Validate(f, rt)

	assert.Equal(t, []string{`"g" overlaps "x"`}, grp.Errors)
	assert.Equal(t, []string{`"x" is overlapped by "g"`}, x.Errors)
}

func TestValidatePermissibleContainment(t *testing.T) {
	build := func(t *testing.T, aliasFirst bool) (*Forest, *Item, *Item) {
		f := NewForest()
		alias := Spec{
			Name:    "boot_primary_alias",
			SizeStr: "0x10200",
			Region:  RegionFlashPrimary,
			Span:    []string{"mcuboot_pad", "app"},
			Address: addr(0),
		}
		group := Spec{Kind: KindGroup, Name: "boot_primary", Region: RegionFlashPrimary, Address: addr(0), Children: []Spec{
			{Name: "mcuboot_pad", SizeStr: "0x200"},
			{Name: "app", SizeStr: "64K"},
		}}
		var a, g *Item
		if aliasFirst {
			a = mustAdd(t, f, alias, NoParent)
			g = mustAdd(t, f, group, NoParent)
		} else {
			g = mustAdd(t, f, group, NoParent)
			a = mustAdd(t, f, alias, NoParent)
		}
		return f, g, a
	}

	for _, aliasFirst := range []bool{false, true} {
		rt := flashTable(t)
		f, g, a := build(t, aliasFirst)
		Resolve(f, rt, Options{})
		Validate(f, rt)

		assert.Equal(t, g.Size, a.Size)
		assert.Empty(t, g.Errors, "aliasFirst=%v", aliasFirst)
		assert.Empty(t, a.Errors, "aliasFirst=%v", aliasFirst)
	}
}

func TestValidateGroupSubsetOfGroup(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	wide := mustAdd(t, f, Spec{Kind: KindGroup, Name: "wide", Region: RegionFlashPrimary, Children: []Spec{
		{Name: "pad", SizeStr: "0x200"},
		{Name: "app", SizeStr: "64K"},
	}}, NoParent)
	narrow := mustAdd(t, f, Spec{Kind: KindGroup, Name: "narrow", Region: RegionFlashPrimary, Address: addr(0x200), Children: []Spec{
		{Name: "app", SizeStr: "64K"},
	}}, NoParent)
	other := mustAdd(t, f, Spec{Kind: KindGroup, Name: "other", Region: RegionFlashPrimary, Address: addr(0x400), Children: []Spec{
		{Name: "tfm", SizeStr: "4K"},
	}}, NoParent)

	Resolve(f, rt, Options{})
	Validate(f, rt)

	// narrow only spans names wide already covers.
	assert.NotContains(t, wide.Errors, `"wide" overlaps "narrow"`)
	assert.NotContains(t, narrow.Errors, `"narrow" is overlapped by "wide"`)
	assert.Contains(t, wide.Errors, `"wide" overlaps "other"`)
	assert.Contains(t, other.Errors, `"other" is overlapped by "wide"`)
	assert.Contains(t, narrow.Errors, `"narrow" overlaps "other"`)
}

func TestValidateNoFalseOverlaps(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	a := mustAdd(t, f, Spec{Name: "a", SizeStr: "4K", Region: RegionFlashPrimary, Address: addr(0x1000)}, NoParent)
	b := mustAdd(t, f, Spec{Name: "b", SizeStr: "4K", Region: RegionFlashPrimary, Address: addr(0x0)}, NoParent)
	c := mustAdd(t, f, Spec{Name: "c", SizeStr: "4K", Region: RegionFlashPrimary, Address: addr(0x2000)}, NoParent)

	Resolve(f, rt, Options{AlignSizes: true})
	Validate(f, rt)

	assert.Empty(t, a.Errors)
	assert.Empty(t, b.Errors)
	assert.Empty(t, c.Errors)
}

func TestValidateIgnoresRegionsOutsideTable(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	a := mustAdd(t, f, Spec{Name: "a", SizeStr: "4K", Region: "ghost", Address: addr(0)}, NoParent)
	b := mustAdd(t, f, Spec{Name: "b", SizeStr: "4K", Region: "ghost", Address: addr(0)}, NoParent)

	Resolve(f, rt, Options{})
	Validate(f, rt)

	assert.Empty(t, a.Errors)
	assert.Empty(t, b.Errors)
}

func TestValidateHugeSizeDoesNotWrap(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	big := mustAdd(t, f, Spec{Name: "big", SizeStr: "0xFFFFFFFFFFFFF000", Region: RegionFlashPrimary, Address: addr(0x2000)}, NoParent)
	x := mustAdd(t, f, Spec{Name: "x", SizeStr: "4K", Region: RegionFlashPrimary, Address: addr(0x3000)}, NoParent)

	Resolve(f, rt, Options{AlignSizes: true})
	Validate(f, rt)

	assert.Equal(t, uint64(0xFFFFFFFFFFFFF000), big.Size)
	require.Len(t, big.Errors, 2)
	assert.Contains(t, big.Errors[0], "outside region")
	assert.Contains(t, big.Errors, `"big" overlaps "x"`)
	assert.Equal(t, []string{`"x" is overlapped by "big"`}, x.Errors)
}

func TestValidateZeroSizeInsideItem(t *testing.T) {
	rt := flashTable(t)
	f := NewForest()
	a := mustAdd(t, f, Spec{Name: "a", SizeStr: "16K", Region: RegionFlashPrimary, Address: addr(0x0)}, NoParent)
	z := mustAdd(t, f, Spec{Name: "z", Region: RegionFlashPrimary, Address: addr(0x1000)}, NoParent)
	edge := mustAdd(t, f, Spec{Name: "edge", Region: RegionFlashPrimary, Address: addr(0x4000)}, NoParent)

	Resolve(f, rt, Options{AlignSizes: true})
	Validate(f, rt)

	assert.Equal(t, []string{`"a" overlaps "z"`}, a.Errors)
	assert.Equal(t, []string{`"z" is overlapped by "a"`}, z.Errors)
	assert.Empty(t, edge.Errors, "touching the end is not an overlap")
}
