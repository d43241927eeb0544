// Package cli implements the flashplan command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/internal/config"
	"github.com/matzehuels/flashplan/pkg/buildinfo"
	"github.com/matzehuels/flashplan/pkg/cache"
	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/project"
	"github.com/matzehuels/flashplan/pkg/render/memmap"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flashplan"

	// defaultProject is the project file used when none is named.
	defaultProject = "flashplan.toml"

	// annotationConfig set to configOptional lets a command run when its
	// config file is missing or broken.
	annotationConfig = "config"
	configOptional   = "optional"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Flashplan lays out microcontroller flash partitions",
		Long:         `Flashplan plans partition layouts for microcontroller flash and RAM: it places partitions and groups into memory regions, validates the result, and reads and writes pm_static.yml files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil && cmd.Annotations[annotationConfig] == configOptional {
				cfg, err = config.Default()
			}
			if err != nil {
				return err
			}
			c.Config = cfg
			lvl, err := parseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			if c.Logger.GetLevel() > lvl {
				c.SetLogLevel(lvl)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.config/flashplan/config.toml)")

	root.AddCommand(c.initCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.devicesCommand())
	root.AddCommand(c.templatesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())
	c.completeCatalog(root)

	return root
}

// =============================================================================
// Planner Factory
// =============================================================================

// source names where a command's layout comes from: a project file, or a
// device and template straight from the catalog.
type source struct {
	project  string
	device   string
	template string
}

func (s *source) flags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.device, "device", "d", "", "device key (instead of a project file)")
	cmd.Flags().StringVarP(&s.template, "template", "t", "", "template key (with --device; default: the device's own)")
}

// loadCatalog returns the catalog named by the config.
func (c *CLI) loadCatalog() (*catalog.Catalog, error) {
	cat, err := c.Config.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// loadPlanner builds a planner from src. A device flag wins over the project
// file; with neither, defaultProject is read.
func (c *CLI) loadPlanner(src source) (*planner.Planner, error) {
	cat, err := c.loadCatalog()
	if err != nil {
		return nil, err
	}
	opts := append(c.Config.PlannerOptions(), planner.WithLogger(c.Logger))

	if src.device != "" {
		pl, err := planner.New(cat, src.device, opts...)
		if err != nil {
			return nil, err
		}
		tmpl := src.template
		if tmpl == "" {
			tmpl = cat.DefaultTemplate(src.device)
		}
		if tmpl != "" {
			if err := pl.LoadTemplate(tmpl); err != nil {
				return nil, err
			}
		}
		return pl, nil
	}

	path := src.project
	if path == "" {
		path = defaultProject
	}
	p, err := project.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	c.Logger.Debug("Loaded project", "path", path, "device", p.Device, "items", len(p.Items))
	return p.Planner(cat, opts...)
}

// newRenderer returns a memory-map renderer backed by the file cache, or by
// no cache when caching is off.
func (c *CLI) newRenderer(noCache bool) (*memmap.Renderer, error) {
	opts := []memmap.RendererOption{memmap.WithLogger(c.Logger)}
	if c.Config.Cache.TTL > 0 {
		opts = append(opts, memmap.WithTTL(c.Config.Cache.TTL))
	}
	if noCache || !c.Config.Cache.Enabled {
		return memmap.NewRenderer(cache.Nop(), opts...), nil
	}
	fc, err := c.fileCache()
	if err != nil {
		return nil, err
	}
	return memmap.NewRenderer(fc, opts...), nil
}

func (c *CLI) fileCache() (*cache.FileCache, error) {
	dir := c.Config.Cache.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/flashplan/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for path, or stdout when path is "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{stdout}, nil
	}
	return os.Create(path)
}
