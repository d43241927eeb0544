package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionTable(t *testing.T) {
	rt := flashTable(t)
	require.NoError(t, rt.Add(Region{Name: "sram_primary", Start: 0x20000000, Size: 0x40000}))
	require.NoError(t, rt.Add(Region{Name: RegionExternalFlash, Size: 0x800000}))

	assert.Equal(t, []string{RegionFlashPrimary, "sram_primary", RegionExternalFlash}, rt.Names())
	assert.ErrorIs(t, rt.Add(Region{Name: "sram_primary", Size: 1}), ErrDuplicateRegion)
	assert.ErrorIs(t, rt.Add(Region{Name: "empty"}), ErrInvalidRegion)
	assert.ErrorIs(t, rt.Add(Region{Size: 1}), ErrInvalidRegion)

	assert.ErrorIs(t, rt.Remove(RegionFlashPrimary), ErrDefaultRegion)
	assert.ErrorIs(t, rt.Remove("nope"), ErrUnknownRegion)
	require.NoError(t, rt.Remove("sram_primary"))
	assert.Equal(t, []string{RegionFlashPrimary, RegionExternalFlash}, rt.Names())

	require.NoError(t, rt.Update(RegionExternalFlash, 0x1000, 0x2000))
	r, ok := rt.Get(RegionExternalFlash)
	require.True(t, ok)
	assert.Equal(t, uint64(0x3000), r.End())
	assert.ErrorIs(t, rt.Update(RegionExternalFlash, 0, 0), ErrInvalidRegion)
	assert.ErrorIs(t, rt.Update("nope", 0, 1), ErrUnknownRegion)

	assert.Equal(t, []Region{r}, rt.Custom())
}

func TestRegionTableClone(t *testing.T) {
	rt := flashTable(t)
	c := rt.Clone()
	require.NoError(t, c.Update(RegionFlashPrimary, 0x1000, 0x1000))

	r, _ := rt.Get(RegionFlashPrimary)
	assert.Equal(t, uint64(0), r.Start)
	assert.True(t, r.Default)
}

func TestRegionContains(t *testing.T) {
	r := Region{Name: "r", Start: 0x1000, Size: 0x1000}
	assert.True(t, r.Contains(0x1000, 0x1000))
	assert.True(t, r.Contains(0x1800, 0))
	assert.False(t, r.Contains(0x0, 0x10))
	assert.False(t, r.Contains(0x1800, 0x1000))
}

func TestRegionClassification(t *testing.T) {
	assert.True(t, IsFlash("flash_primary"))
	assert.True(t, IsFlash("flash_primary_net"))
	assert.False(t, IsFlash("external_flash"))
	assert.False(t, IsFlash("sram_primary"))

	assert.Equal(t, 0, Priority(RegionFlashPrimary))
	assert.Equal(t, 1, Priority(RegionExternalFlash))
	assert.Equal(t, 2, Priority("sram_primary"))
}
