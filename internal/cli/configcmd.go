package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/internal/config"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config
			printKeyValue("device", cfg.Device)
			printKeyValue("catalog", cfg.Catalog)
			printKeyValue("page_size", cfg.Layout.PageSize)
			printKeyValue("pad_name", cfg.Layout.PadName)
			printKeyValue("align", fmt.Sprint(cfg.Layout.Align))
			printKeyValue("strict", fmt.Sprint(cfg.Layout.Strict))
			printKeyValue("cache.dir", cfg.Cache.Dir)
			printKeyValue("cache", fmt.Sprintf("%v, ttl %s", cfg.Cache.Enabled, cfg.Cache.TTL))
			printKeyValue("server", fmt.Sprintf("%s, %d sessions, idle %s", cfg.Server.Addr, cfg.Server.MaxSessions, cfg.Server.IdleTTL))
			printKeyValue("log.level", cfg.Log.Level)
			return nil
		},
	}
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the effective configuration to the config file",
		Annotations: map[string]string{annotationConfig: configOptional},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				path = os.Getenv(config.EnvConfig)
			}
			if path == "" {
				path = config.DefaultPath()
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s exists (use --force to overwrite)", path)
				}
			}
			if err := config.Save(c.Config, path); err != nil {
				return err
			}
			printSuccess("Wrote configuration")
			printFile(path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	return cmd
}
