package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hpratapsigh/creator-dashboard/internal/database"
	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "creator_session"

func newTestManager(t *testing.T) (*Manager, database.Store) {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cookies := NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), nil, time.Hour, false)
	return NewManager(db, cookies, testCookie, slog.New(slog.NewTextHandler(io.Discard, nil))), db
}

// roundTrip loads a session for a request carrying cookies, lets fn mutate
// it, saves it and returns the response cookies.
func roundTrip(t *testing.T, m *Manager, cookies []*http.Cookie, fn func(s *Session)) []*http.Cookie {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	s, err := m.Load(r)
	require.NoError(t, err)
	fn(s)
	w := httptest.NewRecorder()
	require.NoError(t, s.Save(r, w))
	return w.Result().Cookies()
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:abc:token", TokenKey("abc"))
	assert.Equal(t, "session:abc:user", UserKey("abc"))
	assert.Equal(t, "savedFeeds_ann@example.com", SavedFeedsKey("  Ann@Example.com "))
}

func TestSession_NewIsLoggedOut(t *testing.T) {
	m, _ := newTestManager(t)

	roundTrip(t, m, nil, func(s *Session) {
		assert.NotEmpty(t, s.ID())
		assert.False(t, s.IsLoggedIn())
		assert.Empty(t, s.Token())
		assert.Equal(t, model.SessionUser{}, s.User())
	})
}

func TestSession_SetPersistsAcrossRequests(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()
	user := model.SessionUser{Email: "a@b.c", Name: "Ann", Role: model.RoleUser}

	var id string
	cookies := roundTrip(t, m, nil, func(s *Session) {
		require.NoError(t, s.Set(ctx, "abc", user))
		id = s.ID()
		assert.True(t, s.IsLoggedIn())
	})

	token, err := db.Get(ctx, TokenKey(id))
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	roundTrip(t, m, cookies, func(s *Session) {
		assert.Equal(t, id, s.ID())
		assert.True(t, s.IsLoggedIn())
		assert.Equal(t, "abc", s.Token())
		assert.Equal(t, user, s.User())
	})
}

func TestSession_ClearKeepsSavedItems(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, SavedFeedsKey("a@b.c"), `[{"id":"1"}]`))

	cookies := roundTrip(t, m, nil, func(s *Session) {
		require.NoError(t, s.Set(ctx, "abc", model.SessionUser{Email: "a@b.c"}))
	})
	cookies = roundTrip(t, m, cookies, func(s *Session) {
		require.NoError(t, s.Clear(ctx))
		assert.False(t, s.IsLoggedIn())
	})
	roundTrip(t, m, cookies, func(s *Session) {
		assert.False(t, s.IsLoggedIn())
	})

	val, err := db.Get(ctx, SavedFeedsKey("a@b.c"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, val)
}

func TestSession_SetRotatesID(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	var before string
	anonymous := roundTrip(t, m, nil, func(s *Session) {
		before = s.ID()
	})

	var after string
	loggedIn := roundTrip(t, m, anonymous, func(s *Session) {
		require.Equal(t, before, s.ID())
		require.NoError(t, s.Set(ctx, "abc", model.SessionUser{Email: "a@b.c"}))
		after = s.ID()
	})
	assert.NotEqual(t, before, after)

	_, err := db.Get(ctx, TokenKey(before))
	assert.ErrorIs(t, err, database.ErrNotFound)

	// The cookie from before the login stays anonymous.
	roundTrip(t, m, anonymous, func(s *Session) {
		assert.Equal(t, before, s.ID())
		assert.False(t, s.IsLoggedIn())
	})
	roundTrip(t, m, loggedIn, func(s *Session) {
		assert.Equal(t, after, s.ID())
		assert.Equal(t, "abc", s.Token())
	})
}

func TestSession_ClearRotatesID(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	var loggedInID string
	cookies := roundTrip(t, m, nil, func(s *Session) {
		require.NoError(t, s.Set(ctx, "abc", model.SessionUser{}))
		loggedInID = s.ID()
	})
	roundTrip(t, m, cookies, func(s *Session) {
		require.NoError(t, s.Clear(ctx))
		assert.NotEqual(t, loggedInID, s.ID())
		assert.False(t, s.IsLoggedIn())
	})
}

func TestSession_ForgedCookieStartsFresh(t *testing.T) {
	m, _ := newTestManager(t)
	forged := &http.Cookie{Name: testCookie, Value: "not-a-signed-value"}

	roundTrip(t, m, []*http.Cookie{forged}, func(s *Session) {
		assert.NotEmpty(t, s.ID())
		assert.False(t, s.IsLoggedIn())
	})
}

func TestSession_Flashes(t *testing.T) {
	m, _ := newTestManager(t)

	cookies := roundTrip(t, m, nil, func(s *Session) {
		s.Toast("5 credits added!")
		s.Error("Login failed")
	})
	cookies = roundTrip(t, m, cookies, func(s *Session) {
		assert.Equal(t, []Flash{
			{Kind: "error", Message: "Login failed"},
			{Kind: "toast", Message: "5 credits added!"},
		}, s.Flashes())
	})
	roundTrip(t, m, cookies, func(s *Session) {
		assert.Empty(t, s.Flashes())
	})
}

func TestSession_ExpiresAt(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	roundTrip(t, m, nil, func(s *Session) {
		_, ok := s.ExpiresAt()
		assert.False(t, ok)

		require.NoError(t, s.Set(ctx, "opaque-token", model.SessionUser{}))
		_, ok = s.ExpiresAt()
		assert.False(t, ok)

		require.NoError(t, s.Set(ctx, signed, model.SessionUser{}))
		got, ok := s.ExpiresAt()
		require.True(t, ok)
		assert.True(t, exp.Equal(got))
	})
}

func TestMiddleware_StoresSessionInContext(t *testing.T) {
	m, _ := newTestManager(t)
	var got *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, got)
	assert.Nil(t, FromContext(context.Background()))
}
