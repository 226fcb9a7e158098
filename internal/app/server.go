package app

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"onfawiki/internal/i18n"
	"onfawiki/internal/logger"
	"onfawiki/internal/nav"
	"onfawiki/internal/wiki"
)

// maxBodyBytes bounds JSON bodies and uploaded documents.
const maxBodyBytes = 16 << 20

// Server wires handlers, templates, and the wiki engine together.
type Server struct {
	cfg       Config
	engine    *wiki.Engine
	catalog   *i18n.Catalog
	sessions  *Sessions
	templates *template.Template
	log       logger.Logger
	now       func() time.Time
	registry  *prometheus.Registry
	metrics   *httpMetrics
	mux       *http.ServeMux
	handler   http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithServerLogger sets the request logger.
func WithServerLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithCatalog sets the translation catalog used for ?lang=.
func WithCatalog(c *i18n.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithRegistry exposes reg at /metrics and registers request metrics on it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithServerClock replaces time.Now for sessions.
func WithServerClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs an HTTP handler serving the wiki UI and JSON API.
func NewServer(engine *wiki.Engine, cfg Config, opts ...Option) (*Server, error) {
	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"icon": iconHTML,
	}).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:       cfg,
		engine:    engine,
		catalog:   i18n.NewCatalog(""),
		templates: tmpl,
		log:       logger.NewNop(),
		now:       time.Now,
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.registry == nil {
		srv.registry = prometheus.NewRegistry()
	}
	srv.sessions = NewSessions(cfg.SessionSecret, srv.now)
	srv.metrics = newHTTPMetrics(srv.registry)

	srv.routes()
	srv.handler = srv.metrics.instrument(srv.mux)
	return srv, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /wiki/{fragment...}", s.handleWiki)
	s.mux.HandleFunc("GET /nav/{id}", s.handleNav)
	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("POST /admin/login", s.handleLogin)
	s.mux.HandleFunc("POST /admin/logout", s.handleLogout)
	s.mux.HandleFunc("POST /admin/pages", s.adminForm(s.formCreatePage))
	s.mux.HandleFunc("POST /admin/pages/{id}", s.adminForm(s.formUpdatePage))
	s.mux.HandleFunc("POST /admin/pages/{id}/delete", s.adminForm(s.formDeletePage))
	s.mux.HandleFunc("POST /admin/menus", s.adminForm(s.formCreateMenu))
	s.mux.HandleFunc("POST /admin/menus/{id}", s.adminForm(s.formUpdateMenu))
	s.mux.HandleFunc("POST /admin/menus/{id}/delete", s.adminForm(s.formDeleteMenu))
	s.mux.HandleFunc("POST /admin/repair", s.adminForm(s.formRepair))

	s.mux.HandleFunc("GET /api/get-data", s.handleGetData)
	s.mux.HandleFunc("POST /api/save-data", s.requireAdmin(s.handleSaveData))
	s.mux.HandleFunc("PUT /api/save-data", s.requireAdmin(s.handleSaveData))
	s.mux.HandleFunc("GET /api/menus", s.handleListMenus)
	s.mux.HandleFunc("POST /api/menus", s.requireAdmin(s.handleCreateMenu))
	s.mux.HandleFunc("PUT /api/menus/{id}", s.requireAdmin(s.handleUpdateMenu))
	s.mux.HandleFunc("DELETE /api/menus/{id}", s.requireAdmin(s.handleDeleteMenu))
	s.mux.HandleFunc("GET /api/pages", s.handleListPages)
	s.mux.HandleFunc("POST /api/pages", s.requireAdmin(s.handleCreatePage))
	s.mux.HandleFunc("GET /api/pages/{id}", s.handleGetPage)
	s.mux.HandleFunc("PUT /api/pages/{id}", s.requireAdmin(s.handleUpdatePage))
	s.mux.HandleFunc("DELETE /api/pages/{id}", s.requireAdmin(s.handleDeletePage))
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.requireAdmin(s.handleImport))
	s.mux.HandleFunc("GET /api/search", s.handleAPISearch)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/login", s.handleAPILogin)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) credentials() nav.Credentials {
	return nav.Credentials{User: s.cfg.AdminUser, Password: s.cfg.AdminPassword}
}

// navigator builds the per-request state machine. The request path plays
// the part of the address fragment.
func (s *Server) navigator(w http.ResponseWriter, r *http.Request, loc nav.Location, open string) *nav.Navigator {
	return nav.New(s.engine, loc, s.sessions.forRequest(w, r, s.cfg.AdminUser), s.credentials(),
		nav.WithClock(s.now),
		nav.WithLogger(s.log),
		nav.WithExpanded(open),
	)
}

func (s *Server) authenticated(r *http.Request) bool {
	token := FromRequest(r)
	return token != "" && s.sessions.Valid(token)
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized", Details: "admin session required"})
			return
		}
		next(w, r)
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("render template", logger.String("template", name), logger.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// pathLocation is the fragment carried in a request path. A rewrite is
// turned into a redirect by the caller.
type pathLocation struct {
	fragment string
	changed  bool
}

func (l *pathLocation) Fragment() string { return l.fragment }

func (l *pathLocation) SetFragment(fragment string) {
	l.fragment = fragment
	l.changed = true
}
