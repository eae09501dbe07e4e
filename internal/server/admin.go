package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpratapsigh/creator-dashboard/internal/analytics"
	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"github.com/hpratapsigh/creator-dashboard/internal/session"
)

// Admin console tabs.
const (
	tabUsers     = "users"
	tabFeeds     = "feeds"
	tabAnalytics = "analytics"
)

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	tab := r.URL.Query().Get("tab")
	switch tab {
	case tabUsers, tabFeeds, tabAnalytics:
	default:
		tab = tabUsers
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	data := map[string]interface{}{
		"Title":  "Admin",
		"Active": "admin",
		"State":  stateLoaded,
		"Tab":    tab,
		"Query":  q,
	}

	users, err := s.api.AdminUsers(r.Context(), sess.Token())
	if err != nil {
		if s.expired(w, r, sess, err) {
			return
		}
		s.log.Error("error fetching users", slog.Any("error", err))
		data["State"] = stateError
		data["Error"] = "Failed to load users"
		s.render(w, r, sess, "admin.html", data)
		return
	}

	feeds, err := s.api.Feed(r.Context(), sess.Token())
	if err != nil {
		if s.expired(w, r, sess, err) {
			return
		}
		// The users tab still works without feeds.
		s.log.Error("error fetching feeds", slog.Any("error", err))
		data["FeedError"] = "Failed to load feeds"
	}

	if edit := r.URL.Query().Get("edit"); edit != "" {
		for _, u := range users {
			if strings.EqualFold(u.Email, edit) {
				data["Editing"] = u
				break
			}
		}
	}

	data["Users"] = analytics.FilterUsers(users, q)
	data["Feeds"] = analytics.FilterFeeds(feeds, q)
	data["Analytics"] = analytics.Compute(users, feeds, s.intn)
	s.render(w, r, sess, "admin.html", data)
}

func (s *Server) handleChangeUser(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	change := model.UserChange{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Role:  r.PostFormValue("role"),
	}
	if change.Email == "" {
		sess.Error("Missing user email.")
		s.redirect(w, r, sess, "/admin?tab=users")
		return
	}
	if change.Role != model.RoleAdmin && change.Role != model.RoleUser {
		sess.Error("Role must be user or admin.")
		s.redirect(w, r, sess, "/admin?tab=users")
		return
	}
	// Unparseable credit input is sent as 0.
	change.Credit, _ = strconv.Atoi(strings.TrimSpace(r.PostFormValue("credit")))

	if err := s.api.ChangeUser(r.Context(), sess.Token(), change); err != nil {
		s.fail(w, r, sess, err, "Failed to update user", "/admin?tab=users")
		return
	}

	s.log.Info("user updated by admin",
		slog.String("admin", sess.User().Email),
		slog.String("email", change.Email),
		slog.String("role", change.Role),
		slog.Int("credit", change.Credit))
	sess.Toast("User updated")
	s.redirect(w, r, sess, "/admin?tab=users")
}
