package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpratapsigh/creator-dashboard/internal/feeddoc"
	"github.com/hpratapsigh/creator-dashboard/internal/saved"
	"github.com/hpratapsigh/creator-dashboard/internal/session"
)

// maxImportSize caps uploaded feed documents.
const maxImportSize = 5 << 20

// recentActivity is how many activity log entries the dashboard shows.
const recentActivity = 5

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	data := map[string]interface{}{"Title": "Dashboard", "Active": "dashboard", "State": stateLoaded}
	if exp, ok := sess.ExpiresAt(); ok {
		data["ExpiresAt"] = exp
	}

	profile, err := s.api.Me(r.Context(), sess.Token())
	if err != nil {
		if s.expired(w, r, sess, err) {
			return
		}
		s.log.Error("error fetching user details", slog.Any("error", err))
		data["State"] = stateError
		data["Error"] = "Could not load your account. Try again later."
		s.render(w, r, sess, "dashboard.html", data)
		return
	}

	local, err := s.saved.List(r.Context(), profile.Email)
	if err != nil {
		s.log.Error("error reading saved items", slog.Any("error", err))
		data["Error"] = "Saved items from this device could not be loaded."
	}

	data["Profile"] = profile
	data["Activity"] = profile.RecentActivity(recentActivity)
	data["Saved"] = saved.Merge(profile.SavedFeeds, local)
	s.render(w, r, sess, "dashboard.html", data)
}

func (s *Server) handleUnsave(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := strings.TrimSpace(r.PostFormValue("id"))
	if id == "" {
		sess.Error("Missing item id.")
		s.redirect(w, r, sess, "/dashboard")
		return
	}

	removed, err := s.saved.Unsave(r.Context(), sess.Token(), id)
	if err != nil {
		s.fail(w, r, sess, err, "Failed to unsave feed. Please try again later.", "/dashboard")
		return
	}
	if removed {
		sess.Toast("Removed from saved items")
	} else {
		sess.Error("Only items saved on this dashboard can be removed.")
	}
	s.redirect(w, r, sess, "/dashboard")
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	file, _, err := r.FormFile("feed")
	if err != nil {
		sess.Error("Choose a feed file to import.")
		s.redirect(w, r, sess, "/dashboard")
		return
	}
	defer file.Close()

	items, err := feeddoc.Parse(file)
	if err != nil {
		s.log.Warn("failed to parse imported feed", slog.Any("error", err))
		sess.Error("That file is not an RSS, Atom or JSON feed.")
		s.redirect(w, r, sess, "/dashboard")
		return
	}

	profile, err := s.api.Me(r.Context(), sess.Token())
	if err != nil {
		s.fail(w, r, sess, err, "Import failed. Please try again later.", "/dashboard")
		return
	}
	added, err := s.saved.Import(r.Context(), profile.Email, items)
	if err != nil {
		s.fail(w, r, sess, err, "Import failed. Please try again later.", "/dashboard")
		return
	}

	s.log.Info("imported saved items", slog.String("email", profile.Email), slog.Int("added", added), slog.Int("total", len(items)))
	sess.Toast(fmt.Sprintf("Imported %d of %d items.", added, len(items)))
	s.redirect(w, r, sess, "/dashboard")
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	profile, err := s.api.Me(r.Context(), sess.Token())
	if err != nil {
		s.fail(w, r, sess, err, "Export failed. Please try again later.", "/dashboard")
		return
	}
	items, err := s.saved.List(r.Context(), profile.Email)
	if err != nil {
		s.fail(w, r, sess, err, "Export failed. Please try again later.", "/dashboard")
		return
	}

	data, err := feeddoc.Export("Saved items of "+profile.Name, s.publicURL+"/dashboard", items, time.Now())
	if err != nil {
		s.fail(w, r, sess, err, "Export failed. Please try again later.", "/dashboard")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=saved-items.rss")
	w.Write(data)
}
