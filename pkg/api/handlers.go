package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	fperrors "github.com/matzehuels/flashplan/pkg/errors"
	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/pmstatic"
	"github.com/matzehuels/flashplan/pkg/render/memmap"
	"github.com/matzehuels/flashplan/pkg/session"
	"github.com/matzehuels/flashplan/pkg/size"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"sessions": len(s.sessions.List()),
	})
}

// Catalog

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	out := []DeviceView{}
	for _, d := range s.sessions.Catalog().Devices() {
		out = append(out, deviceView(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.sessions.Catalog().Device(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceView(d))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	out := []TemplateView{}
	for _, t := range s.sessions.Catalog().Templates() {
		out = append(out, templateView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.sessions.Catalog().Template(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templateView(t))
}

// Sessions

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Device == "" {
		s.writeError(w, fperrors.New(fperrors.ErrCodeInvalidInput, "device is required"))
		return
	}

	sess, err := s.sessions.Create(req.Device, req.Template)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(sess.ID, sess.Snapshot()))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	out := []SessionSummary{}
	for _, sess := range s.sessions.List() {
		out = append(out, sessionSummary(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess.ID, sess.Snapshot()))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.mutate(w, r, func(p *planner.Planner) error {
		if req.LoadTemplate {
			return p.SwitchDevice(req.Device)
		}
		return p.SetDevice(req.Device)
	})
}

func (s *Server) handleLoadTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.mutate(w, r, func(p *planner.Planner) error { return p.LoadTemplate(req.Template) })
}

// Regions

func (s *Server) handleAddRegion(w http.ResponseWriter, r *http.Request) {
	var req RegionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.mutate(w, r, func(p *planner.Planner) error {
		return p.AddRegion(req.Name, size.Parse(req.Start), size.Parse(req.Size))
	})
}

func (s *Server) handleUpdateRegion(w http.ResponseWriter, r *http.Request) {
	var req RegionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	s.mutate(w, r, func(p *planner.Planner) error {
		return p.UpdateRegion(name, size.Parse(req.Start), size.Parse(req.Size))
	})
}

func (s *Server) handleRemoveRegion(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mutate(w, r, func(p *planner.Planner) error { return p.RemoveRegion(name) })
}

// Items

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	parent := layout.NoParent
	if req.ParentID != nil {
		parent = *req.ParentID
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var resp AddItemResponse
	err := sess.Do(func(p *planner.Planner) error {
		id, err := p.AddItem(req.spec(), parent)
		if err != nil {
			return err
		}
		resp = AddItemResponse{ItemID: id, Session: sessionView(sess.ID, p.Snapshot())}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req EditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	field, err := planner.ParseField(req.Field)
	if err != nil {
		s.writeError(w, fperrors.Wrap(fperrors.ErrCodeInvalidField, err, "edit item %d", id))
		return
	}

	s.mutate(w, r, func(p *planner.Planner) error {
		if req.Draft {
			return p.ApplyDraft(id, field, req.Value)
		}
		return p.Commit(id, field, req.Value)
	})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mutate(w, r, func(p *planner.Planner) error { return p.RemoveItem(id) })
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req MoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	pos, err := layout.ParsePosition(req.Position)
	if err != nil {
		s.writeError(w, fperrors.Wrap(fperrors.ErrCodeInvalidMove, err, "move item %d", id))
		return
	}
	s.mutate(w, r, func(p *planner.Planner) error { return p.MoveItem(id, req.Target, pos) })
}

func (s *Server) handleReflow(w http.ResponseWriter, r *http.Request) {
	var req ReflowRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, err)
		return
	}
	s.mutate(w, r, func(p *planner.Planner) error { return p.Reflow(req.Region) })
}

// pm_static and rendering

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var recs []layout.Record
	_ = sess.Do(func(p *planner.Planner) error {
		recs = p.Export()
		return nil
	})
	data, err := pmstatic.Marshal(recs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="pm_static.yml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	recs, err := pmstatic.Decode(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mutate(w, r, func(p *planner.Planner) error {
		_, err := p.Import(recs)
		return err
	})
}

func (s *Server) handleMemmap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := memmap.FormatSVG
	if v := q.Get("format"); v != "" {
		f, err := memmap.ParseFormat(v)
		if err != nil {
			s.writeError(w, fperrors.Wrap(fperrors.ErrCodeInvalidInput, err, "memory map"))
			return
		}
		format = f
	}
	detailed, _ := strconv.ParseBool(q.Get("detailed"))

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	data, err := s.renderer.Render(r.Context(), memmap.FromSnapshot(sess.Snapshot()), format, memmap.Options{Detailed: detailed})
	if err != nil {
		s.writeError(w, fperrors.Wrap(fperrors.ErrCodeInternal, err, "render memory map"))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// helpers

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return sess, true
}

// mutate applies fn to the session's planner and answers with the
// resulting layout.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(p *planner.Planner) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var snap planner.Snapshot
	err := sess.Do(func(p *planner.Planner) error {
		if err := fn(p); err != nil {
			return err
		}
		snap = p.Snapshot()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess.ID, snap))
}

func itemID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "item")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fperrors.New(fperrors.ErrCodeInvalidInput, "item id %q is not a number", raw)
	}
	return id, nil
}
