// Package session is the single accessor for a browser's bearer token and
// cached user. The browser holds only a signed cookie with a random session
// id; token and user live in the key-value store under keys derived here.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/hpratapsigh/creator-dashboard/internal/database"
	"github.com/hpratapsigh/creator-dashboard/internal/model"
)

const (
	cookieIDKey   = "sid"
	flashToastKey = "_toast"
	flashErrorKey = "_error"
)

// TokenKey is the store key holding the bearer token of session id.
func TokenKey(id string) string {
	return "session:" + id + ":token"
}

// UserKey is the store key holding the cached user of session id.
func UserKey(id string) string {
	return "session:" + id + ":user"
}

// SavedFeedsKey is the store key of a user's saved-items list. It is keyed
// by the normalized email only, so every page resolves the same list.
func SavedFeedsKey(email string) string {
	return "savedFeeds_" + strings.ToLower(strings.TrimSpace(email))
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string // "toast" or "error"
	Message string
}

// Manager binds requests to sessions.
type Manager struct {
	store   database.Store
	cookies sessions.Store
	name    string
	log     *slog.Logger
}

// NewManager creates a manager. cookies signs the session cookie named name.
func NewManager(store database.Store, cookies sessions.Store, name string, log *slog.Logger) *Manager {
	return &Manager{store: store, cookies: cookies, name: name, log: log}
}

// Load returns the session of r, creating a fresh id when the request has
// no valid cookie. The token and user are read once here.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	raw, err := m.cookies.Get(r, m.name)
	if err != nil {
		// A cookie signed with old keys decodes to an error plus a new session.
		m.log.Debug("discarding unreadable session cookie", slog.Any("error", err))
		if raw == nil {
			if raw, err = m.cookies.New(r, m.name); raw == nil {
				return nil, fmt.Errorf("new session: %w", err)
			}
		}
	}

	id, _ := raw.Values[cookieIDKey].(string)
	if id == "" {
		id = uuid.NewString()
		raw.Values[cookieIDKey] = id
	}

	s := &Session{id: id, raw: raw, store: m.store}
	if err := s.load(r.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

// Session is one browser's session. It is not safe for concurrent use; each
// request gets its own value.
type Session struct {
	id    string
	raw   *sessions.Session
	store database.Store

	token string
	user  model.SessionUser
}

func (s *Session) load(ctx context.Context) error {
	token, err := s.store.Get(ctx, TokenKey(s.id))
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("load token: %w", err)
	}
	s.token = token

	raw, err := s.store.Get(ctx, UserKey(s.id))
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &s.user); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	return nil
}

// ID returns the random session id.
func (s *Session) ID() string {
	return s.id
}

// IsLoggedIn reports whether a token is present. The token is not validated.
func (s *Session) IsLoggedIn() bool {
	return s.token != ""
}

// Token returns the bearer token or "".
func (s *Session) Token() string {
	return s.token
}

// User returns the user cached at login.
func (s *Session) User() model.SessionUser {
	return s.user
}

// ExpiresAt decodes the exp claim when the token is a JWT. The signature is
// not checked and the result is informational only.
func (s *Session) ExpiresAt() (time.Time, bool) {
	if s.token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Set stores token and user under a fresh session id and drops the
// previous id's keys, so a cookie issued before the call no longer resolves
// to this login. Save must run afterwards to send the new id.
func (s *Session) Set(ctx context.Context, token string, user model.SessionUser) error {
	buf, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	id := uuid.NewString()
	if err := s.store.Set(ctx, TokenKey(id), token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := s.store.Set(ctx, UserKey(id), string(buf)); err != nil {
		s.store.Delete(ctx, TokenKey(id))
		return fmt.Errorf("store user: %w", err)
	}
	if err := s.store.Delete(ctx, TokenKey(s.id), UserKey(s.id)); err != nil {
		return fmt.Errorf("drop previous session: %w", err)
	}

	s.rotate(id)
	s.token = token
	s.user = user
	return nil
}

// Clear removes token and user and moves the browser to a fresh session id.
// Saved items are kept.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, TokenKey(s.id), UserKey(s.id)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.rotate(uuid.NewString())
	s.token = ""
	s.user = model.SessionUser{}
	return nil
}

func (s *Session) rotate(id string) {
	s.id = id
	s.raw.Values[cookieIDKey] = id
}

// Toast queues an informational message for the next page.
func (s *Session) Toast(msg string) {
	s.raw.AddFlash(msg, flashToastKey)
}

// Error queues an error message for the next page.
func (s *Session) Error(msg string) {
	s.raw.AddFlash(msg, flashErrorKey)
}

// Flashes pops the queued messages. Call Save afterwards so they are not
// shown twice.
func (s *Session) Flashes() []Flash {
	var out []Flash
	for _, f := range s.raw.Flashes(flashErrorKey) {
		if msg, ok := f.(string); ok {
			out = append(out, Flash{Kind: "error", Message: msg})
		}
	}
	for _, f := range s.raw.Flashes(flashToastKey) {
		if msg, ok := f.(string); ok {
			out = append(out, Flash{Kind: "toast", Message: msg})
		}
	}
	return out
}

// Save writes the cookie. It must run before the response body.
func (s *Session) Save(r *http.Request, w http.ResponseWriter) error {
	return s.raw.Save(r, w)
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// Middleware loads the session for every request and stores it in the
// request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		if err != nil {
			m.log.Error("failed to load session", slog.Any("error", err))
			http.Error(w, "Session unavailable", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

// NewCookieStore builds the cookie store used for the session id and
// flashes. blockKey may be empty to sign without encrypting.
func NewCookieStore(hashKey, blockKey []byte, maxAge time.Duration, secure bool) *sessions.CookieStore {
	var cs *sessions.CookieStore
	if len(blockKey) > 0 {
		cs = sessions.NewCookieStore(hashKey, blockKey)
	} else {
		cs = sessions.NewCookieStore(hashKey)
	}
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}
