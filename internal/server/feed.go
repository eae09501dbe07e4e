package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"github.com/hpratapsigh/creator-dashboard/internal/saved"
	"github.com/hpratapsigh/creator-dashboard/internal/session"
)

type feedRow struct {
	model.FeedItem
	Saved bool
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	data := map[string]interface{}{"Title": "Your Feed", "Active": "feed", "State": stateLoaded}

	items, err := s.api.Feed(r.Context(), sess.Token())
	if err != nil {
		if s.expired(w, r, sess, err) {
			return
		}
		s.log.Error("error fetching feed", slog.Any("error", err))
		data["State"] = stateError
		data["Error"] = "Could not load your feed. Check back later."
		s.render(w, r, sess, "feed.html", data)
		return
	}

	var local []model.FeedItem
	profile, err := s.api.Me(r.Context(), sess.Token())
	if err != nil {
		if s.expired(w, r, sess, err) {
			return
		}
		s.log.Warn("error fetching user details", slog.Any("error", err))
	} else if local, err = s.saved.List(r.Context(), profile.Email); err != nil {
		s.log.Error("error reading saved items", slog.Any("error", err))
	}

	rows := make([]feedRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, feedRow{FeedItem: it, Saved: saved.Contains(local, it.ID)})
	}
	data["Items"] = rows
	s.render(w, r, sess, "feed.html", data)
}

func (s *Server) handleToggleSave(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	item := model.FeedItem{
		ID:     strings.TrimSpace(r.PostFormValue("id")),
		Title:  r.PostFormValue("title"),
		Source: r.PostFormValue("source"),
		Link:   r.PostFormValue("link"),
	}
	if item.ID == "" {
		sess.Error("Missing item id.")
		s.redirect(w, r, sess, "/feed")
		return
	}

	res, err := s.saved.Toggle(r.Context(), sess.Token(), item)
	if err != nil {
		s.fail(w, r, sess, err, "Error saving feed. Try again later.", "/feed")
		return
	}

	switch {
	case !res.Saved:
		sess.Toast("Removed from Dashboard.")
	case res.CreditErr != nil:
		sess.Toast("Saved to Dashboard.")
	default:
		sess.Toast("Saved. 5 credits added!")
	}
	s.redirect(w, r, sess, "/feed")
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	s.log.Info("feed item reported",
		slog.String("id", r.PostFormValue("id")),
		slog.String("title", r.PostFormValue("title")),
		slog.String("email", sess.User().Email))
	sess.Toast("Thanks for reporting!")
	s.redirect(w, r, sess, "/feed")
}
