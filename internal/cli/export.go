package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/pkg/pmstatic"
)

// exportCommand creates the export command for writing pm_static.yml.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		src    source
		output string
	)

	cmd := &cobra.Command{
		Use:   "export [project.toml]",
		Short: "Write the resolved layout as pm_static.yml",
		Long: `Write the resolved layout as a partition manager file.

Records are ordered by region, then address. Groups list their members
in a span and are followed by the anchor of their first member.`,
		Example: `  flashplan export -o pm_static.yml
  flashplan export -d nrf9160 -t fota -o -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				src.project = args[0]
			}
			return c.runExport(src, output)
		},
	}
	src.flags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "pm_static.yml", `output file ("-" for stdout)`)

	return cmd
}

func (c *CLI) runExport(src source, output string) error {
	prog := newProgress(c.Logger)

	pl, err := c.loadPlanner(src)
	if err != nil {
		return err
	}
	if !pl.Valid() {
		printWarning("Layout has %d invalid items; exporting anyway", len(pl.Findings()))
	}

	recs := pl.Export()
	c.Logger.Debug("Exporting records", "count", len(recs))

	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := pmstatic.Encode(out, recs); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	if output == "-" {
		return nil
	}

	prog.done(fmt.Sprintf("Exported %d records", len(recs)), "path", output)
	printSuccess("Export complete")
	printFile(output)
	return nil
}
