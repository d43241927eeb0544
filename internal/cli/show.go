package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/size"
)

var tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

// showCommand creates the show command for printing a resolved layout.
func (c *CLI) showCommand() *cobra.Command {
	var src source

	cmd := &cobra.Command{
		Use:   "show [project.toml]",
		Short: "Print the resolved layout",
		Long: `Print the resolved layout: region usage, every item with its address
and size, and the validation findings.

The layout is read from a project file (flashplan.toml by default), or built
from a catalog device and template with --device and --template.`,
		Example: `  flashplan show
  flashplan show boards/dk.toml
  flashplan show -d nrf5340 -t nrf5340_multi`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				src.project = args[0]
			}
			pl, err := c.loadPlanner(src)
			if err != nil {
				return err
			}
			snap := pl.Snapshot()
			fmt.Fprintln(stdout, formatLayout(snap))
			if !pl.Valid() {
				return fmt.Errorf("layout has %d invalid items", len(snap.Findings))
			}
			return nil
		},
	}
	src.flags(cmd)

	return cmd
}

// formatLayout renders a snapshot as a title, a region table, an item
// table and any findings.
func formatLayout(snap planner.Snapshot) string {
	var b strings.Builder

	title := snap.Device.Name
	if snap.Template != "" {
		title += " / " + snap.Template
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(regionTable(snap.Usage).Render())
	b.WriteString("\n")
	if len(snap.Items) > 0 {
		b.WriteString(itemTable(snap.Items).Render())
		b.WriteString("\n")
	}

	for _, f := range snap.Findings {
		for _, msg := range f.Messages {
			b.WriteString(styleIconError.Render(iconError) + " " + StyleValue.Render(f.Name) + ": " + msg + "\n")
		}
	}
	for _, cf := range snap.Conflicts {
		b.WriteString(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(cf.String()) + "\n")
	}

	count := 0
	for _, it := range snap.Items {
		count += countItems(it)
	}
	b.WriteString(statsLine(len(snap.Regions), count, len(snap.Findings) == 0))
	return b.String()
}

func countItems(it *layout.Item) int {
	n := 1
	for _, c := range it.Children {
		n += countItems(c)
	}
	return n
}

func regionTable(usage []layout.RegionUsage) *table.Table {
	rows := make([][]string, 0, len(usage))
	for _, u := range usage {
		r := u.Region
		free := size.FormatBytes(u.Free)
		if u.Overflowing() {
			free = "-" + size.FormatBytes(u.Overflow)
		}
		rows = append(rows, []string{
			r.Name,
			size.FormatHex(r.Start, 8),
			size.FormatHex(r.End(), 8),
			size.FormatBytes(r.Size),
			size.FormatBytes(u.Used),
			free,
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Region", "Start", "End", "Size", "Used", "Free").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			s := lipgloss.NewStyle().Padding(0, 1)
			if col == 5 && usage[row].Overflowing() {
				return s.Foreground(colorRed)
			}
			if col == 0 {
				return s.Foreground(colorCyan)
			}
			return s
		})
}

func itemTable(roots []*layout.Item) *table.Table {
	var (
		rows    [][]string
		flagged []bool
	)
	var walk func(items []*layout.Item, depth int)
	walk = func(items []*layout.Item, depth int) {
		for _, it := range items {
			name := it.Name
			if name == "" {
				name = "(unnamed)"
			}
			if it.IsGroup() {
				name += "/"
			}
			addr, end := "-", "-"
			if it.Pinned && it.ResolvedRegion != "" {
				addr = size.FormatHex(it.Address, 8)
				end = size.FormatHex(it.End(), 8)
			}
			rows = append(rows, []string{
				strings.Repeat("  ", depth) + name,
				it.ResolvedRegion,
				addr,
				end,
				size.FormatBytes(it.Size),
			})
			flagged = append(flagged, len(it.Errors) > 0)
			walk(it.Children, depth+1)
		}
	}
	walk(roots, 0)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Item", "Region", "Address", "End", "Size").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			s := lipgloss.NewStyle().Padding(0, 1)
			if flagged[row] {
				return s.Foreground(colorRed)
			}
			if col == 0 {
				return s.Foreground(colorWhite)
			}
			return s.Foreground(colorGray)
		})
}
