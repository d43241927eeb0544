package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/internal/config"
	"github.com/matzehuels/flashplan/pkg/catalog"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for your shell. Device and template
flags complete from the configured catalog.

  bash:        source <(flashplan completion bash)
  zsh:         flashplan completion zsh > "${fpath[1]}/_flashplan"
  fish:        flashplan completion fish > ~/.config/fish/completions/flashplan.fish
  powershell:  flashplan completion powershell | Out-String | Invoke-Expression`,
		Annotations:           map[string]string{annotationConfig: configOptional},
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(stdout, true)
			case "zsh":
				return root.GenZshCompletion(stdout)
			case "fish":
				return root.GenFishCompletion(stdout, true)
			default:
				return root.GenPowerShellCompletionWithDesc(stdout)
			}
		},
	}
}

// completeCatalog registers catalog completions for the device and template
// flags on every command that has them.
func (c *CLI) completeCatalog(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		c.completeCatalog(sub)
	}
	if cmd.Flags().Lookup("device") != nil {
		_ = cmd.RegisterFlagCompletionFunc("device", c.completeDevices)
	}
	if cmd.Flags().Lookup("template") != nil {
		_ = cmd.RegisterFlagCompletionFunc("template", c.completeTemplates)
	}
}

// completionCatalog loads the catalog without the root pre-run, which
// cobra skips while completing.
func (c *CLI) completionCatalog() (*catalog.Catalog, bool) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		if cfg, err = config.Default(); err != nil {
			return nil, false
		}
	}
	cat, err := cfg.LoadCatalog()
	return cat, err == nil
}

func (c *CLI) completeDevices(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	cat, ok := c.completionCatalog()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	var out []cobra.Completion
	for _, d := range cat.Devices() {
		out = append(out, cobra.CompletionWithDesc(d.Key, d.Name))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func (c *CLI) completeTemplates(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	cat, ok := c.completionCatalog()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	var out []cobra.Completion
	for _, t := range cat.Templates() {
		out = append(out, cobra.CompletionWithDesc(t.Key, t.Name))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
