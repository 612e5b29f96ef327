package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

// PageSummary is one entry of the page listing.
type PageSummary struct {
	Slug       string `json:"slug"`
	Components int    `json:"components"`
}

// InsertRequest is the body of POST .../instances.
type InsertRequest struct {
	Type    document.Type    `json:"type"`
	Variant string           `json:"variant,omitempty"`
	Index   *int             `json:"index,omitempty"`
	Layout  *document.Layout `json:"layout,omitempty"`
	Data    map[string]any   `json:"data,omitempty"`
}

// MoveRequest is the body of POST .../move. A Page different from the
// current page transfers the instance.
type MoveRequest struct {
	Page  string `json:"page,omitempty"`
	Index int    `json:"index"`
}

// UpdateRequest is the body of PATCH .../instances/{id}.
type UpdateRequest struct {
	Variant string           `json:"variant,omitempty"`
	Layout  *document.Layout `json:"layout,omitempty"`
}

// PathUpdate is the body of PATCH .../data.
type PathUpdate struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc := sess.Document()
	out := []PageSummary{}
	for _, slug := range doc.Pages() {
		out = append(out, PageSummary{Slug: slug, Components: doc.Len(slug)})
	}
	writeJSON(w, http.StatusOK, out)
}

// page opens the session and checks that the routed page exists.
func (s *Server) page(r *http.Request) (*editor.Session, string, error) {
	sess, err := s.session(r)
	if err != nil {
		return nil, "", err
	}
	slug := chi.URLParam(r, "slug")
	if !sess.Document().Has(slug) {
		return nil, "", errors.New(errors.ErrCodePageNotFound, "page %q not found", slug)
	}
	return sess, slug, nil
}

// instance opens the session and checks that the routed instance is on the
// routed page.
func (s *Server) instance(r *http.Request) (*editor.Session, string, string, error) {
	sess, slug, err := s.page(r)
	if err != nil {
		return nil, "", "", err
	}
	id := chi.URLParam(r, "id")
	if sess.Document().IndexOf(slug, id) < 0 {
		return nil, "", "", errors.New(errors.ErrCodeInstanceNotFound, "instance %s not found on page %q", id, slug)
	}
	return sess, slug, id, nil
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	sess, slug, err := s.page(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Document().Page(slug))
}

func (s *Server) deletePage(w http.ResponseWriter, r *http.Request) {
	sess, slug, err := s.page(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": sess.DeletePage(slug)})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request) {
	sess, slug, err := s.page(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	rep, err := sess.RenderPage(&buf, slug)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if len(rep.Missing) > 0 || len(rep.Failed) > 0 {
		w.Header().Set("X-Sitecraft-Degraded", "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) insertInstance(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req InsertRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	slug := chi.URLParam(r, "slug")
	inst := document.NewInstance(req.Type, 1)
	if req.Variant != "" {
		inst.ComponentName = req.Variant
	}
	if req.Layout != nil {
		inst.Layout = *req.Layout
	}
	inst.Data = req.Data
	index := sess.Document().Len(slug)
	if req.Index != nil {
		index = *req.Index
	}
	stored, err := sess.Insert(slug, inst, index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) removeInstance(w http.ResponseWriter, r *http.Request) {
	sess, slug, id, err := s.instance(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.Remove(slug, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateInstance(w http.ResponseWriter, r *http.Request) {
	sess, slug, id, err := s.instance(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req UpdateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var inst document.Instance
	if req.Variant != "" {
		if inst, err = sess.SetVariant(slug, id, req.Variant); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Layout != nil {
		if inst, err = sess.SetLayout(slug, id, *req.Layout); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Variant == "" && req.Layout == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "nothing to update"))
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) moveInstance(w http.ResponseWriter, r *http.Request) {
	sess, slug, id, err := s.instance(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req MoveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	target := slug
	if req.Page != "" && req.Page != slug {
		target = req.Page
		err = sess.Transfer(slug, id, target, req.Index)
	} else {
		err = sess.Move(slug, id, req.Index)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Document().Page(target))
}

func (s *Server) copyInstance(w http.ResponseWriter, r *http.Request) {
	sess, _, id, err := s.instance(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.Copy(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getData(w http.ResponseWriter, r *http.Request) {
	sess, _, id, err := s.instance(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var props map[string]any
	if raw := r.URL.Query().Get("props"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "props must be a JSON object"))
			return
		}
	}
	data, err := sess.EffectiveData(id, props)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) setData(w http.ResponseWriter, r *http.Request) {
	sess, _, id, err := s.instance(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var data map[string]any
	if err := decode(r, &data); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.SetData(id, data); err != nil {
		s.writeError(w, r, err)
		return
	}
	current, _ := sess.Data(id)
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) updateData(w http.ResponseWriter, r *http.Request) {
	sess, _, id, err := s.instance(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req PathUpdate
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := sess.UpdateByPath(id, req.Path, req.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
