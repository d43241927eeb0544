// Package memmap renders region memory maps as Graphviz diagrams.
package memmap

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/size"
)

// Options configures memory map rendering.
type Options struct {
	// Detailed adds exact byte counts and validator messages to the rows.
	Detailed bool

	// HexWidth pads addresses to this many hex digits. Zero means 8.
	HexWidth int
}

// Map is the input of [ToDOT]: a title, the region table and the root
// items of a resolved forest.
type Map struct {
	Title   string
	Regions []layout.Region
	Items   []*layout.Item
}

// FromSnapshot builds a map from a planner snapshot.
func FromSnapshot(s planner.Snapshot) Map {
	title := s.Device.Name
	if s.Template != "" {
		title += " / " + s.Template
	}
	return Map{Title: title, Regions: s.Regions, Items: s.Items}
}

const (
	colorPartition = "#ffffff"
	colorGroup     = "#e3ecfa"
	colorChild     = "#f4f7fc"
	colorFree      = "#eeeeee"
	colorError     = "#f8d7da"
	colorOverflow  = "#dc3545"
)

// ToDOT converts a map to Graphviz DOT. Each region becomes a cluster
// holding a single table node; regions without placed items show one free
// row spanning the region.
func ToDOT(m Map, opts Options) string {
	if opts.HexWidth == 0 {
		opts.HexWidth = 8
	}

	var buf bytes.Buffer
	buf.WriteString("digraph memmap {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  fontname=\"Helvetica\";\n")
	buf.WriteString("  node [shape=plaintext, fontname=\"Helvetica\", fontsize=11];\n")
	if m.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", m.Title)
	}

	for i, r := range m.Regions {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "  subgraph %q {\n", "cluster_"+r.Name)
		fmt.Fprintf(&buf, "    label=%q;\n", regionLabel(r, opts))
		buf.WriteString("    style=\"rounded\";\n")
		fmt.Fprintf(&buf, "    %q [label=<%s>];\n", fmt.Sprintf("region_%d", i), regionTable(r, rootsIn(m.Items, r.Name), opts))
		buf.WriteString("  }\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func regionLabel(r layout.Region, opts Options) string {
	return fmt.Sprintf("%s  %s - %s  (%s)", r.Name,
		size.FormatHex(r.Start, opts.HexWidth),
		size.FormatHex(r.End(), opts.HexWidth),
		size.FormatBytes(r.Size))
}

// rootsIn returns the placed roots of region in address order.
func rootsIn(items []*layout.Item, region string) []*layout.Item {
	var out []*layout.Item
	for _, it := range items {
		if it.ResolvedRegion == region && it.Pinned {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Address < out[b].Address })
	return out
}

func regionTable(r layout.Region, roots []*layout.Item, opts Options) string {
	var b strings.Builder
	b.WriteString(`<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">`)

	cursor := r.Start
	for _, it := range roots {
		if it.Address > cursor {
			freeRow(&b, cursor, it.Address-cursor, opts)
		}
		itemRow(&b, it, 0, opts)
		if it.End() > cursor {
			cursor = it.End()
		}
	}

	switch {
	case cursor < r.End():
		freeRow(&b, cursor, r.End()-cursor, opts)
	case cursor > r.End():
		fmt.Fprintf(&b, `<TR><TD ALIGN="LEFT" BGCOLOR="%s"><FONT COLOR="white">%s</FONT></TD><TD BGCOLOR="%s"><FONT COLOR="white">overflow</FONT></TD><TD ALIGN="RIGHT" BGCOLOR="%s"><FONT COLOR="white">%s</FONT></TD></TR>`,
			colorOverflow, size.FormatHex(r.End(), opts.HexWidth), colorOverflow, colorOverflow, size.FormatBytes(cursor-r.End()))
	}

	b.WriteString(`</TABLE>`)
	return b.String()
}

func itemRow(b *strings.Builder, it *layout.Item, depth int, opts Options) {
	color := colorPartition
	switch {
	case len(it.Errors) > 0:
		color = colorError
	case it.IsGroup():
		color = colorGroup
	case depth > 0:
		color = colorChild
	}

	name := it.Name
	if name == "" {
		name = "(unnamed)"
	}
	name = strings.Repeat("&nbsp;&nbsp;&nbsp;", depth) + html.EscapeString(name)
	if it.IsGroup() {
		name = "<B>" + name + "</B>"
	}

	sz := size.FormatBytes(it.Size)
	if opts.Detailed {
		sz += " (" + size.FormatHex(it.Size, 0) + ")"
	}

	fmt.Fprintf(b, `<TR><TD ALIGN="LEFT" BGCOLOR="%s">%s</TD><TD ALIGN="LEFT" BGCOLOR="%s">%s</TD><TD ALIGN="RIGHT" BGCOLOR="%s">%s</TD></TR>`,
		color, size.FormatHex(it.Address, opts.HexWidth), color, name, color, sz)

	if opts.Detailed {
		for _, msg := range it.Errors {
			fmt.Fprintf(b, `<TR><TD COLSPAN="3" ALIGN="LEFT" BGCOLOR="%s"><FONT POINT-SIZE="9">%s</FONT></TD></TR>`,
				colorError, html.EscapeString(msg))
		}
	}

	for _, c := range it.Children {
		itemRow(b, c, depth+1, opts)
	}
}

func freeRow(b *strings.Builder, addr, n uint64, opts Options) {
	fmt.Fprintf(b, `<TR><TD ALIGN="LEFT" BGCOLOR="%s"><FONT COLOR="#888888">%s</FONT></TD><TD ALIGN="LEFT" BGCOLOR="%s"><FONT COLOR="#888888"><I>free</I></FONT></TD><TD ALIGN="RIGHT" BGCOLOR="%s"><FONT COLOR="#888888">%s</FONT></TD></TR>`,
		colorFree, size.FormatHex(addr, opts.HexWidth), colorFree, colorFree, size.FormatBytes(n))
}
