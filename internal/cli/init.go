package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/project"
)

// initCommand creates the init command for writing a new project file.
func (c *CLI) initCommand() *cobra.Command {
	var (
		device    string
		template  string
		output    string
		addresses bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a new project file",
		Long: `Write a new project file for a device, starting from a template.

Without --device the device and template are picked interactively. With
--device alone the device's suggested template is used; --template none
starts an empty layout.`,
		Example: `  flashplan init
  flashplan init -d nrf9160 -t fota_external
  flashplan init -d nrf52840 -t none -o blank.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s exists (use --force to overwrite)", output)
				}
			}

			cat, err := c.loadCatalog()
			if err != nil {
				return err
			}

			if device == "" {
				var ok bool
				if device, template, ok, err = pickLayout(cat, c.Config.Device, template); err != nil || !ok {
					return err
				}
			}
			if template == "" {
				template = cat.DefaultTemplate(device)
			}
			return c.runInit(cat, device, template, output, addresses)
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "device key (default: pick interactively)")
	cmd.Flags().StringVarP(&template, "template", "t", "", `template key, or "none" for an empty layout`)
	cmd.Flags().StringVarP(&output, "output", "o", defaultProject, "project file to write")
	cmd.Flags().BoolVar(&addresses, "addresses", false, "write resolved addresses into the project")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing project file")

	return cmd
}

// pickLayout runs the device picker and, unless a template was given, the
// template picker. ok is false when the user quit without choosing.
func pickLayout(cat *catalog.Catalog, currentDevice, template string) (device, tmpl string, ok bool, err error) {
	final, err := tea.NewProgram(NewDeviceListModel(cat.Devices(), currentDevice)).Run()
	if err != nil {
		return "", "", false, err
	}
	dm, isModel := final.(DeviceListModel)
	if !isModel || dm.Selected == nil {
		printDetail("No device selected")
		return "", "", false, nil
	}
	device = dm.Selected.Key

	if template != "" {
		return device, template, true, nil
	}
	final, err = tea.NewProgram(NewTemplateListModel(cat.Templates(), cat.DefaultTemplate(device))).Run()
	if err != nil {
		return "", "", false, err
	}
	tm, isModel := final.(TemplateListModel)
	if !isModel || tm.Selected == "" {
		printDetail("No template selected")
		return "", "", false, nil
	}
	return device, tm.Selected, true, nil
}

func (c *CLI) runInit(cat *catalog.Catalog, device, template, output string, addresses bool) error {
	pl, err := planner.New(cat, device, append(c.Config.PlannerOptions(), planner.WithLogger(c.Logger))...)
	if err != nil {
		return err
	}
	if template != "" && template != noTemplate {
		if err := pl.LoadTemplate(template); err != nil {
			return err
		}
	}

	p := project.FromPlanner(pl, addresses)
	if err := p.Save(output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	snap := pl.Snapshot()
	printSuccess("Created project for %s", StyleHighlight.Render(snap.Device.Name))
	printFile(output)
	printStats(len(snap.Regions), len(pl.Export()), pl.Valid())
	printNewline()
	printNextStep("Inspect", "flashplan show "+output)
	return nil
}
