package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/pkg/api"
	"github.com/matzehuels/flashplan/pkg/buildinfo"
	"github.com/matzehuels/flashplan/pkg/cache"
	"github.com/matzehuels/flashplan/pkg/render/memmap"
	"github.com/matzehuels/flashplan/pkg/session"
)

const (
	// sweepInterval is how often idle sessions are dropped.
	sweepInterval = time.Minute

	// renderCacheEntries bounds the in-memory memory map cache.
	renderCacheEntries = 512
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. Each session holds one editable layout in memory;
sessions idle for longer than server.idle_ttl are dropped.`,
		Example: `  flashplan serve
  flashplan serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr, :8080)")

	return cmd
}

func (c *CLI) newServer() (*api.Server, *session.Manager, error) {
	cat, err := c.loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	m := session.NewManager(cat, session.Config{
		IdleTTL:        c.Config.Server.IdleTTL,
		MaxSessions:    c.Config.Server.MaxSessions,
		Logger:         c.Logger,
		PlannerOptions: c.Config.PlannerOptions(),
	})

	rendererOpts := []memmap.RendererOption{memmap.WithLogger(c.Logger)}
	if c.Config.Cache.TTL > 0 {
		rendererOpts = append(rendererOpts, memmap.WithTTL(c.Config.Cache.TTL))
	}
	var rc cache.Cache = cache.Nop()
	if c.Config.Cache.Enabled {
		rc = cache.NewMemoryCache(renderCacheEntries)
	}

	srv := api.New(m,
		api.WithLogger(c.Logger),
		api.WithVersion(buildinfo.Short()),
		api.WithRenderer(memmap.NewRenderer(rc, rendererOpts...)),
	)
	return srv, m, nil
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	srv, m, err := c.newServer()
	if err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Cleanup(); n > 0 {
					c.Logger.Debug("Dropped idle sessions", "count", n)
				}
			}
		}
	}()

	printInfo("Serving the API on %s", StyleLink.Render("http://"+displayAddr(addr)+"/api/v1"))
	return srv.ListenAndServe(ctx, addr)
}

// displayAddr fills in localhost for addresses without a host.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
