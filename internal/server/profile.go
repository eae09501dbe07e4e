package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"github.com/hpratapsigh/creator-dashboard/internal/session"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	data := map[string]interface{}{"Title": "Update Profile", "Active": "profile", "State": stateLoaded}

	profile, err := s.api.Me(r.Context(), sess.Token())
	if err != nil {
		if s.expired(w, r, sess, err) {
			return
		}
		s.log.Error("error fetching profile", slog.Any("error", err))
		data["State"] = stateError
		data["Error"] = "Failed to load profile"
		s.render(w, r, sess, "profile.html", data)
		return
	}

	data["Name"] = profile.Name
	data["Email"] = profile.Email
	s.render(w, r, sess, "profile.html", data)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	name := strings.TrimSpace(r.PostFormValue("name"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	if name == "" || email == "" {
		sess.Error("Name and email are required.")
		s.redirect(w, r, sess, "/profile")
		return
	}

	upd := model.ProfileUpdate{Name: &name, Email: &email}
	if password != "" {
		upd.Password = &password
	}
	if err := s.api.UpdateMe(r.Context(), sess.Token(), upd); err != nil {
		s.fail(w, r, sess, err, "Error updating profile", "/profile")
		return
	}

	user := sess.User()
	if user.Email != "" && !strings.EqualFold(user.Email, email) {
		if err := s.saved.Rename(r.Context(), user.Email, email); err != nil {
			s.log.Error("failed to move saved items to new email",
				slog.String("from", user.Email),
				slog.String("to", email),
				slog.Any("error", err))
		}
	}
	user.Name = name
	user.Email = email
	if err := sess.Set(r.Context(), sess.Token(), user); err != nil {
		s.log.Warn("failed to refresh cached user", slog.Any("error", err))
	}

	sess.Toast("Profile updated successfully!")
	s.redirect(w, r, sess, "/dashboard")
}
