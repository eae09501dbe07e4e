// Package server provides the HTTP server and page handlers.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hpratapsigh/creator-dashboard/internal/api"
	"github.com/hpratapsigh/creator-dashboard/internal/config"
	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"github.com/hpratapsigh/creator-dashboard/internal/saved"
	"github.com/hpratapsigh/creator-dashboard/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// View states of a page.
const (
	stateLoaded = "loaded"
	stateError  = "error"
)

// Backend is the remote creator API as used by the pages.
type Backend interface {
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Register(ctx context.Context, name, email, password string) error
	Feed(ctx context.Context, token string) ([]model.FeedItem, error)
	Forget(token string)
	Me(ctx context.Context, token string) (*model.Profile, error)
	UpdateMe(ctx context.Context, token string, upd model.ProfileUpdate) error
	AdminUsers(ctx context.Context, token string) ([]model.AdminUser, error)
	ChangeUser(ctx context.Context, token string, change model.UserChange) error
}

// Server is the main HTTP server.
type Server struct {
	api       Backend
	saved     *saved.Service
	sessions  *session.Manager
	log       *slog.Logger
	router    chi.Router
	templates *template.Template
	http      *http.Server

	// publicURL prefixes links in exported documents; empty means relative.
	publicURL string

	// intn feeds the analytics placeholder; nil means math/rand.
	intn func(int) int
}

// New creates a new server.
func New(cfg config.HTTP, backend Backend, savedSvc *saved.Service, sessions *session.Manager, log *slog.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatTime": formatTime,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		api:       backend,
		saved:     savedSvc,
		sessions:  sessions,
		log:       log,
		templates: tmpl,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}
	s.setupRoutes()
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		r.Get("/", s.handleHome)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/register", s.handleRegisterPage)
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)

			r.Get("/feed", s.handleFeed)
			r.Post("/feed/save", s.handleToggleSave)
			r.Post("/feed/report", s.handleReport)

			r.Get("/dashboard", s.handleDashboard)
			r.Post("/dashboard/unsave", s.handleUnsave)
			r.Post("/dashboard/import", s.handleImport)
			r.Get("/dashboard/export.rss", s.handleExport)

			r.Get("/profile", s.handleProfile)
			r.Post("/profile", s.handleUpdateProfile)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/admin", s.handleAdmin)
				r.Post("/admin/users", s.handleChangeUser)
			})
		})
	})

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server starting", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// --- Middleware ---

func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if !sess.IsLoggedIn() {
			s.redirect(w, r, sess, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if !sess.User().IsAdmin() {
			sess.Error("Admin access required.")
			s.redirect(w, r, sess, "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

// render executes a page template. Flashes, the cached user and the login
// state are added to data.
func (s *Server) render(w http.ResponseWriter, r *http.Request, sess *session.Session, name string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Flashes"] = sess.Flashes()
	data["User"] = sess.User()
	data["LoggedIn"] = sess.IsLoggedIn()

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("template error", slog.String("template", name), slog.Any("error", err))
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	if err := sess.Save(r, w); err != nil {
		s.log.Error("failed to save session cookie", slog.Any("error", err))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// redirect saves the session cookie and sends a 303 to url.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, sess *session.Session, url string) {
	if err := sess.Save(r, w); err != nil {
		s.log.Error("failed to save session cookie", slog.Any("error", err))
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// expired handles a 401 from the backend by dropping the login and sending
// the browser to /login. It reports whether err was handled.
func (s *Server) expired(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	s.log.Info("backend rejected token, logging out", slog.String("path", r.URL.Path))
	s.logout(r.Context(), sess)
	sess.Error("Your session has expired. Please log in again.")
	s.redirect(w, r, sess, "/login")
	return true
}

func (s *Server) logout(ctx context.Context, sess *session.Session) {
	if token := sess.Token(); token != "" {
		s.api.Forget(token)
	}
	if err := sess.Clear(ctx); err != nil {
		s.log.Error("failed to clear session", slog.Any("error", err))
	}
}

// fail logs err and queues msg for the next page, then redirects to back.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, sess *session.Session, err error, msg, back string) {
	if s.expired(w, r, sess, err) {
		return
	}
	s.log.Error(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	sess.Error(msg)
	s.redirect(w, r, sess, back)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2 Jan 2006 15:04")
}
