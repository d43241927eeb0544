package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func addr(v uint64) *uint64 { return &v }

func flashTable(t *testing.T) *RegionTable {
	t.Helper()
	rt := NewRegionTable()
	require.NoError(t, rt.Add(Region{Name: RegionFlashPrimary, Start: 0, Size: 0x100000, Default: true}))
	return rt
}

func mustAdd(t *testing.T, f *Forest, spec Spec, parent int) *Item {
	t.Helper()
	it, err := f.Add(spec, parent)
	require.NoError(t, err)
	return it
}

func part(name, sizeStr string) Spec {
	return Spec{Kind: KindPartition, Name: name, SizeStr: sizeStr, Region: RegionFlashPrimary}
}

// fotaForest builds the single-region firmware-update layout.
func fotaForest(t *testing.T) (*Forest, map[string]*Item) {
	t.Helper()
	f := NewForest()
	byName := make(map[string]*Item)
	for _, s := range []Spec{
		part("mcuboot", "48K"),
		part("mcuboot_pad", "0x200"),
		part("slot_0", "480K"),
		part("slot_1", "480K"),
		part("storage", "16K"),
	} {
		byName[s.Name] = mustAdd(t, f, s, NoParent)
	}
	return f, byName
}

type placement struct {
	addr    uint64
	size    uint64
	sizeStr string
	pinned  bool
}

func snapshot(f *Forest) map[int]placement {
	out := make(map[int]placement)
	f.Walk(func(it, _ *Item) {
		out[it.ID] = placement{it.Address, it.Size, it.SizeStr, it.Pinned}
	})
	return out
}
