// Package render turns resolved layouts into pictures.
//
// The [memmap] subpackage draws one memory map per region with Graphviz:
// every placed root is a row in address order, groups list their children
// beneath them, and unused space between and after items is shown as free
// rows. Rows of items with validator findings are highlighted.
//
//	m := memmap.FromSnapshot(pl.Snapshot())
//	dot := memmap.ToDOT(m, memmap.Options{})
//	svg, err := memmap.Render(ctx, dot, memmap.FormatSVG)
//
// [memmap.Renderer] adds a content-addressed cache in front of Graphviz,
// which the CLI backs with a file cache and the API server with an
// in-memory one.
//
// Terminal tables are drawn by the CLI with lipgloss.
package render
