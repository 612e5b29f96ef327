package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/collision"
	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/placement"
)

// DragRequest is the body of POST .../pages/{slug}/drag.
type DragRequest struct {
	Active  string             `json:"active"`
	Targets []collision.Target `json:"targets"`
}

// FrameResponse reports the decision of one drag frame.
type FrameResponse struct {
	Collided bool                `json:"collided"`
	Decision *placement.Decision `json:"decision,omitempty"`
}

// DropResponse reports the outcome of a drop.
type DropResponse struct {
	Changed  bool                `json:"changed"`
	Decision *placement.Decision `json:"decision,omitempty"`
}

// ThemeResponse describes the theme state of a tenant.
type ThemeResponse struct {
	Active  int      `json:"active"`
	Backups []string `json:"backups"`
}

func (s *Server) beginDrag(w http.ResponseWriter, r *http.Request) {
	sess, slug, err := s.page(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req DragRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.BeginDrag(slug, req.Active, req.Targets); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dragFrame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var f placement.Frame
	if err := decode(r, &f); err != nil {
		s.writeError(w, r, err)
		return
	}
	dec, ok, err := sess.DragFrame(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := FrameResponse{Collided: ok}
	if ok {
		resp.Decision = &dec
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) drop(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dec, changed, err := sess.Drop()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := DropResponse{Changed: changed}
	if changed {
		resp.Decision = &dec
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cancelDrag(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.CancelDrag()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := sess.Save(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func themeNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "theme must be a positive number, got %q", chi.URLParam(r, "n"))
	}
	return n, nil
}

func (s *Server) listThemes(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeState(sess.Document().ActiveTheme(), sess.Document().ThemeBackups()))
}

func themeState(active int, backups []string) ThemeResponse {
	if backups == nil {
		backups = []string{}
	}
	return ThemeResponse{Active: active, Backups: backups}
}

func (s *Server) switchTheme(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := themeNumber(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.SwitchTheme(n); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeState(sess.Document().ActiveTheme(), sess.Document().ThemeBackups()))
}

func (s *Server) backupTheme(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := themeNumber(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.BackupTheme(n); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeState(sess.Document().ActiveTheme(), sess.Document().ThemeBackups()))
}

// getChangelog exports the retained entries, optionally filtered by
// repeated ?type= parameters.
func (s *Server) getChangelog(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var types []changelog.Type
	for _, t := range r.URL.Query()["type"] {
		ct := changelog.Type(t)
		if !ct.Valid() {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "unknown entry type %q", t))
			return
		}
		types = append(types, ct)
	}
	entries := sess.Changelog().Entries()
	if len(types) > 0 {
		entries = sess.Changelog().Filter(types...)
	}
	if entries == nil {
		entries = []changelog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
