package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hpratapsigh/creator-dashboard/internal/api"
	"github.com/hpratapsigh/creator-dashboard/internal/session"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess.IsLoggedIn() {
		s.redirect(w, r, sess, "/dashboard")
		return
	}
	s.redirect(w, r, sess, "/login")
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	s.render(w, r, sess, "login.html", map[string]interface{}{"Title": "Log in"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		sess.Error("Email and password are required.")
		s.redirect(w, r, sess, "/login")
		return
	}

	res, err := s.api.Login(r.Context(), email, password)
	if err != nil {
		s.log.Warn("login failed", slog.String("email", email), slog.Any("error", err))
		sess.Error("Login failed")
		s.redirect(w, r, sess, "/login")
		return
	}
	if err := sess.Set(r.Context(), res.Token, res.User); err != nil {
		s.log.Error("failed to store session", slog.Any("error", err))
		sess.Error("Login failed")
		s.redirect(w, r, sess, "/login")
		return
	}

	s.log.Info("user logged in", slog.String("email", res.User.Email), slog.String("role", res.User.Role))
	if res.User.IsAdmin() {
		s.redirect(w, r, sess, "/admin")
		return
	}
	s.redirect(w, r, sess, "/dashboard")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	s.render(w, r, sess, "register.html", map[string]interface{}{"Title": "Create account"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	name := strings.TrimSpace(r.PostFormValue("name"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	if name == "" || email == "" || password == "" {
		sess.Error("Name, email and password are required.")
		s.redirect(w, r, sess, "/register")
		return
	}

	if err := s.api.Register(r.Context(), name, email, password); err != nil {
		s.log.Warn("registration failed", slog.String("email", email), slog.Any("error", err))
		if errors.Is(err, api.ErrConflict) {
			sess.Error("An account with this email already exists.")
		} else {
			sess.Error("Registration failed")
		}
		s.redirect(w, r, sess, "/register")
		return
	}

	sess.Toast("Account created. Please log in.")
	s.redirect(w, r, sess, "/login")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	s.logout(r.Context(), sess)
	s.redirect(w, r, sess, "/login")
}
