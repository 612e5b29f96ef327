// Package api serves editor sessions over HTTP.
//
// Every route under /tenants/{tenant} opens (or reuses) the tenant's
// [editor.Session] through an [editor.Manager]. Request and response bodies
// are JSON, except page rendering which returns HTML. Errors are returned
// as {"code": ..., "message": ...} with a status derived from the error
// code; see [StatusOf].
//
// The change log of a tenant can be followed live over a websocket at
// /tenants/{tenant}/changelog/stream.
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/sitecraft/pkg/editor"
)

// DefaultTimeout bounds non-streaming requests.
const DefaultTimeout = 60 * time.Second

// Options configures a Server.
type Options struct {
	// Timeout bounds each non-streaming request. Zero uses DefaultTimeout.
	Timeout time.Duration
	// CheckOrigin decides which websocket origins are accepted. Nil accepts
	// same-origin requests only.
	CheckOrigin func(r *http.Request) bool
	Logger      *log.Logger
}

// Server is the HTTP front end of an editor manager.
type Server struct {
	mgr      *editor.Manager
	logger   *log.Logger
	timeout  time.Duration
	upgrader websocket.Upgrader
}

// New returns a server over mgr.
func New(mgr *editor.Manager, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Server{
		mgr:     mgr,
		logger:  logger,
		timeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)

	r.Route("/tenants/{tenant}", func(r chi.Router) {
		// The stream outlives any request timeout.
		r.Get("/changelog/stream", s.streamChangelog)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.timeout))

			r.Get("/pages", s.listPages)
			r.Route("/pages/{slug}", func(r chi.Router) {
				r.Get("/", s.getPage)
				r.Delete("/", s.deletePage)
				r.Get("/render", s.renderPage)
				r.Post("/drag", s.beginDrag)
				r.Post("/instances", s.insertInstance)
				r.Route("/instances/{id}", func(r chi.Router) {
					r.Delete("/", s.removeInstance)
					r.Patch("/", s.updateInstance)
					r.Post("/move", s.moveInstance)
					r.Post("/copy", s.copyInstance)
					r.Get("/data", s.getData)
					r.Put("/data", s.setData)
					r.Patch("/data", s.updateData)
				})
			})

			r.Post("/drag/frame", s.dragFrame)
			r.Post("/drag/drop", s.drop)
			r.Post("/drag/cancel", s.cancelDrag)

			r.Post("/save", s.save)
			r.Get("/themes", s.listThemes)
			r.Post("/themes/{n}", s.switchTheme)
			r.Post("/themes/{n}/backup", s.backupTheme)
			r.Get("/changelog", s.getChangelog)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"tenants": len(s.mgr.Tenants()),
	})
}

// session opens the tenant named in the route.
func (s *Server) session(r *http.Request) (*editor.Session, error) {
	return s.mgr.Open(r.Context(), chi.URLParam(r, "tenant"))
}
