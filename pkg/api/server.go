// Package api serves layout sessions over HTTP.
//
// All routes live under /api/v1 and speak JSON, except the pm_static
// import and export (YAML) and the memory map (SVG, PNG or DOT):
//
//	GET    /devices                          list devices
//	GET    /devices/{key}                    one device
//	GET    /templates                        list templates
//	GET    /templates/{key}                  one template
//	POST   /sessions                         create a session
//	GET    /sessions                         list sessions
//	GET    /sessions/{id}                    resolved layout
//	DELETE /sessions/{id}                    end a session
//	PUT    /sessions/{id}/device             switch device
//	PUT    /sessions/{id}/template           load a template
//	POST   /sessions/{id}/regions            add a region
//	PUT    /sessions/{id}/regions/{name}     move or resize a region
//	DELETE /sessions/{id}/regions/{name}     remove a region
//	POST   /sessions/{id}/items              add an item
//	PATCH  /sessions/{id}/items/{item}       draft or commit a field edit
//	DELETE /sessions/{id}/items/{item}       remove an item
//	POST   /sessions/{id}/items/{item}/move  move an item
//	POST   /sessions/{id}/reflow             repack a region
//	GET    /sessions/{id}/pm_static          export pm_static.yml
//	PUT    /sessions/{id}/pm_static          import pm_static.yml
//	GET    /sessions/{id}/memmap             render the memory map
//
// Mutations answer with the full resolved layout, so clients never hold
// a stale view.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flashplan/pkg/render/memmap"
	"github.com/matzehuels/flashplan/pkg/session"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Server is the HTTP front end of a session manager.
type Server struct {
	sessions *session.Manager
	renderer *memmap.Renderer
	logger   *log.Logger
	version  string
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRenderer sets the memory map renderer. The default renders without
// a cache.
func WithRenderer(r *memmap.Renderer) Option {
	return func(s *Server) { s.renderer = r }
}

// WithVersion sets the version reported by the health route.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New returns a server for m.
func New(m *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: m,
		logger:   log.New(io.Discard),
		version:  "dev",
	}
	for _, o := range opts {
		o(s)
	}
	if s.renderer == nil {
		s.renderer = memmap.NewRenderer(nil, memmap.WithLogger(s.logger))
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/devices", s.handleListDevices)
		r.Get("/devices/{key}", s.handleGetDevice)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{key}", s.handleGetTemplate)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Put("/device", s.handleSetDevice)
				r.Put("/template", s.handleLoadTemplate)

				r.Post("/regions", s.handleAddRegion)
				r.Put("/regions/{name}", s.handleUpdateRegion)
				r.Delete("/regions/{name}", s.handleRemoveRegion)

				r.Post("/items", s.handleAddItem)
				r.Patch("/items/{item}", s.handleEditItem)
				r.Delete("/items/{item}", s.handleRemoveItem)
				r.Post("/items/{item}/move", s.handleMoveItem)
				r.Post("/reflow", s.handleReflow)

				r.Get("/pm_static", s.handleExport)
				r.Put("/pm_static", s.handleImport)
				r.Get("/memmap", s.handleMemmap)
			})
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown", "err", err)
		}
	}()

	s.logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
