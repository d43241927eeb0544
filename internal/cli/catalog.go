package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/size"
)

// devicesCommand creates the devices command for listing device presets.
func (c *CLI) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices [key]",
		Short: "List device presets, or show one device's regions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Fprintln(stdout, deviceTable(cat.Devices()).Render())
				return nil
			}
			d, err := cat.Device(args[0])
			if err != nil {
				return err
			}
			printDevice(d)
			return nil
		},
	}
}

// templatesCommand creates the templates command for listing layout templates.
func (c *CLI) templatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List layout templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, templateTable(cat.Templates()).Render())
			return nil
		},
	}
}

func catalogTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			s := lipgloss.NewStyle().Padding(0, 1)
			if col == 0 {
				return s.Foreground(colorCyan)
			}
			return s
		})
}

func deviceTable(devices []catalog.Device) *table.Table {
	t := catalogTable("Key", "Name", "Regions", "Pad", "Template")
	for _, d := range devices {
		names := make([]string, len(d.Regions))
		for i, r := range d.Regions {
			names[i] = r.Name
		}
		t.Row(d.Key, d.Name, strings.Join(names, ", "), size.FormatBytes(d.PadSize), d.Template)
	}
	return t
}

func templateTable(templates []catalog.Template) *table.Table {
	t := catalogTable("Key", "Name", "Regions", "Description")
	for _, tm := range templates {
		t.Row(tm.Key, tm.Name, strings.Join(tm.Regions(), ", "), tm.Description)
	}
	return t
}

func printDevice(d catalog.Device) {
	fmt.Fprintln(stdout, StyleTitle.Render(d.Name))
	printKeyValue("Key", d.Key)
	printKeyValue("Pad size", size.FormatBytes(d.PadSize))
	if d.Template != "" {
		printKeyValue("Template", d.Template)
	}
	printNewline()
	for _, r := range d.Regions {
		printKeyValue(r.Name, fmt.Sprintf("%s - %s  %s",
			size.FormatHex(r.Start, 8), size.FormatHex(r.End(), 8), StyleNumber.Render(size.FormatBytes(r.Size))))
	}
}
