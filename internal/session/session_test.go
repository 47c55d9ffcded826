package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/store/memory"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func TestInspectToken(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := signedToken(t, jwt.MapClaims{"sub": "ann@example.com", "role": "ADMIN", "exp": exp.Unix()})

	info, err := InspectToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", info.Subject)
	assert.Equal(t, "ADMIN", info.Role)
	assert.True(t, exp.Equal(info.ExpiresAt))

	for _, bad := range []string{"", "null", "undefined", "opaque", "a.b.c"} {
		_, err := InspectToken(bad)
		assert.ErrorIs(t, err, ErrMalformedToken, bad)
	}
}

func newManager(now time.Time) (*Manager, *memory.Store) {
	st := memory.New()
	m := NewManager(st, Config{TTL: time.Hour, CookieName: "sid"}, nil)
	m.SetClock(func() time.Time { return now })
	return m, st
}

func requestWith(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestStartLoadEnd(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m, st := newManager(now)
	tok := signedToken(t, jwt.MapClaims{"sub": "ann@example.com", "exp": now.Add(30 * time.Minute).Unix()})

	rec := httptest.NewRecorder()
	sess, err := m.Start(context.Background(), rec, api.LoginResult{
		Token: tok,
		User:  core.User{ID: 3, Name: "Ann", Email: "ann@example.com", Role: core.RoleUser},
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), sess.ExpiresAt, "token expiry wins over a longer TTL")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, sess.ID, cookies[0].Value)

	got, err := m.Load(requestWith(cookies))
	require.NoError(t, err)
	assert.Equal(t, tok, got.Token)
	assert.Equal(t, int64(3), got.UserID)

	rec = httptest.NewRecorder()
	m.End(rec, requestWith(cookies))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	_, err = st.GetSession(context.Background(), sess.ID)
	assert.Error(t, err)
	_, err = m.Load(requestWith(cookies))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoadRejectsUnknownAndExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m, st := newManager(now)

	_, err := m.Load(requestWith(nil))
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = m.Load(requestWith([]*http.Cookie{{Name: "sid", Value: "not-a-uuid"}}))
	assert.ErrorIs(t, err, ErrNoSession)

	rec := httptest.NewRecorder()
	sess, err := m.Start(context.Background(), rec, api.LoginResult{Token: "opaque.token", User: core.User{ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt, "TTL applies when the token has no exp")

	m.SetClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = m.Load(requestWith(rec.Result().Cookies()))
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = st.GetSession(context.Background(), sess.ID)
	assert.Error(t, err, "expired session is deleted on load")
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), core.Session{ID: "x", Role: core.RoleAdmin})
	sess, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, sess.IsAdmin())
}
