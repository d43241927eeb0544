// Package session keeps editable layouts in memory for the API server.
//
// Each [Session] wraps one [planner.Planner] behind a mutex, so requests
// against the same session run one at a time while different sessions
// proceed independently. Sessions are identified by random UUIDs and
// expire after a period without use.
//
//	m := session.NewManager(catalog.Builtin(), session.Config{})
//	s, err := m.Create("nrf9160", "fota")
//	err = s.Do(func(p *planner.Planner) error {
//	    return p.Commit(id, planner.FieldSize, "64K")
//	})
package session

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/flashplan/pkg/catalog"
	fperrors "github.com/matzehuels/flashplan/pkg/errors"
	"github.com/matzehuels/flashplan/pkg/planner"
)

var (
	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("session not found")

	// ErrLimit is returned by [Manager.Create] when the manager is full.
	ErrLimit = errors.New("session limit reached")
)

// Default limits.
const (
	DefaultIdleTTL     = 2 * time.Hour
	DefaultMaxSessions = 256
)

// Session is one editable layout.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	planner  *planner.Planner
	lastUsed time.Time
}

// Do runs fn with exclusive access to the session's planner. The planner
// must not be retained after fn returns.
func (s *Session) Do(fn func(p *planner.Planner) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return fn(s.planner)
}

// Snapshot returns a detached copy of the session's layout.
func (s *Session) Snapshot() planner.Snapshot {
	var snap planner.Snapshot
	_ = s.Do(func(p *planner.Planner) error {
		snap = p.Snapshot()
		return nil
	})
	return snap
}

// LastUsed returns when the session was last accessed.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Config bounds a Manager. Zero values select the defaults.
type Config struct {
	IdleTTL     time.Duration
	MaxSessions int
	Logger      *log.Logger

	// PlannerOptions are applied to every new planner.
	PlannerOptions []planner.Option
}

// Manager owns the live sessions.
type Manager struct {
	catalog *catalog.Catalog
	cfg     Config
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty manager drawing devices and templates from c.
func NewManager(c *catalog.Catalog, cfg Config) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Manager{catalog: c, cfg: cfg, now: time.Now, sessions: make(map[string]*Session)}
}

// Catalog returns the manager's catalog.
func (m *Manager) Catalog() *catalog.Catalog { return m.catalog }

// Create starts a session for device. When template is empty the device's
// default template is loaded; "none" starts with no items.
func (m *Manager) Create(device, template string) (*Session, error) {
	opts := append([]planner.Option{planner.WithLogger(m.cfg.Logger)}, m.cfg.PlannerOptions...)
	p, err := planner.New(m.catalog, device, opts...)
	if err != nil {
		return nil, err
	}
	if template == "" {
		template = m.catalog.DefaultTemplate(device)
	}
	if template != "none" {
		if err := p.LoadTemplate(template); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked()
	if len(m.sessions) >= m.cfg.MaxSessions {
		return nil, fperrors.Wrap(fperrors.ErrCodeConflict, ErrLimit, "create session (%d live)", len(m.sessions))
	}

	now := m.now()
	s := &Session{ID: uuid.NewString(), CreatedAt: now, planner: p, lastUsed: now}
	m.sessions[s.ID] = s
	m.cfg.Logger.Info("session created", "session", s.ID, "device", device, "template", template)
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || m.expired(s) {
		return nil, notFound(id)
	}
	return s, nil
}

// Delete ends a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return notFound(id)
	}
	delete(m.sessions, id)
	m.cfg.Logger.Info("session deleted", "session", id)
	return nil
}

// List returns the live sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !m.expired(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out
}

// Cleanup drops idle sessions and returns how many were removed.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expireLocked()
}

func (m *Manager) expireLocked() int {
	var n int
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.cfg.Logger.Debug("expired sessions", "count", n)
	}
	return n
}

func (m *Manager) expired(s *Session) bool {
	return m.now().Sub(s.LastUsed()) > m.cfg.IdleTTL
}

func notFound(id string) error {
	return fperrors.Wrap(fperrors.ErrCodeSessionNotFound, fmt.Errorf("%w: %s", ErrNotFound, id), "get session")
}
