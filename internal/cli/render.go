package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/pkg/render/memmap"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file path ("-" for stdout)
	format   string // svg, png or dot
	detailed bool   // exact byte counts and per-item findings
	noCache  bool   // bypass the render cache
}

// renderCommand creates the render command for drawing memory maps.
func (c *CLI) renderCommand() *cobra.Command {
	var src source
	opts := renderOpts{format: string(memmap.FormatSVG)}

	cmd := &cobra.Command{
		Use:   "render [project.toml]",
		Short: "Draw the memory map as SVG, PNG or DOT",
		Long: `Draw the memory map with Graphviz: one box per region, one row per
item in address order, with free space and overflow marked.

Rendered images are cached locally, keyed by the map contents.`,
		Example: `  flashplan render
  flashplan render -d nrf9160 -t fota -f png -o fota.png
  flashplan render --detailed -f dot -o -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				src.project = args[0]
			}
			if _, err := memmap.ParseFormat(opts.format); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), src, &opts)
		},
	}
	src.flags(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file (default: memmap.<format>, "-" for stdout)`)
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: "+formatList())
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show exact sizes and findings")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func formatList() string {
	names := make([]string, len(memmap.Formats))
	for i, f := range memmap.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// runRender loads the layout and writes its memory map.
func (c *CLI) runRender(ctx context.Context, src source, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	format, err := memmap.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	pl, err := c.loadPlanner(src)
	if err != nil {
		return err
	}

	renderer, err := c.newRenderer(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize renderer: %w", err)
	}

	m := memmap.FromSnapshot(pl.Snapshot())
	prog := newProgress(logger)

	spin := newSpinner(ctx, stderr, fmt.Sprintf("Rendering %s memory map...", format)).start()
	data, err := renderer.Render(ctx, m, format, memmap.Options{Detailed: opts.detailed})
	if err != nil {
		spin.fail("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spin.stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	path := opts.output
	if path == "" {
		path = "memmap." + string(format)
	}
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if path == "-" {
		return nil
	}

	prog.done("Rendered memory map", "format", format, "bytes", len(data))
	printSuccess("Render complete")
	printFile(path)
	return nil
}
