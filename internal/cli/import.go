package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/pmstatic"
	"github.com/matzehuels/flashplan/pkg/project"
)

// importCommand creates the import command for turning pm_static.yml into
// a project file.
func (c *CLI) importCommand() *cobra.Command {
	var (
		device string
		output string
		pack   bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "import pm_static.yml",
		Short: "Create a project from a pm_static.yml file",
		Long: `Create a project from a partition manager file.

Groups are rebuilt from their spans. A partition named by more than one
span stays with the group that claimed it first; the rest are reported.
Addresses are kept unless --pack is given.`,
		Example: `  flashplan import pm_static.yml -d nrf9160
  flashplan import build/pm_static.yml -d nrf5340 -o dk.toml --pack`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if device == "" {
				device = c.Config.Device
			}
			if device == "" {
				return errors.New("no device: pass --device or set device in the config")
			}
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s exists (use --force to overwrite)", output)
				}
			}
			return c.runImport(args[0], device, output, !pack)
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "device key (default: config device)")
	cmd.Flags().StringVarP(&output, "output", "o", defaultProject, "project file to write")
	cmd.Flags().BoolVar(&pack, "pack", false, "drop addresses so the layout is packed again on load")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing project file")

	return cmd
}

func (c *CLI) runImport(input, device, output string, addresses bool) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	recs, err := pmstatic.Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	cat, err := c.loadCatalog()
	if err != nil {
		return err
	}
	pl, err := planner.New(cat, device, append(c.Config.PlannerOptions(), planner.WithLogger(c.Logger))...)
	if err != nil {
		return err
	}
	conflicts, err := pl.Import(recs)
	if err != nil {
		return err
	}
	for _, cf := range conflicts {
		printWarning("%s", cf.String())
	}

	p := project.FromPlanner(pl, addresses)
	if addresses {
		align := false
		p.Align = &align
	}
	if err := p.Save(output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Imported %d records", len(recs))
	printFile(output)
	printStats(len(pl.Regions()), len(recs), pl.Valid())
	printNewline()
	printNextStep("Inspect", "flashplan show "+output)
	return nil
}
