// Package session turns a backend login into a server-side session that
// the browser references through an opaque cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
	"budgettracker/internal/store"
)

var (
	// ErrNoSession means the request carries no valid session.
	ErrNoSession = errors.New("no session")
	// ErrMalformedToken means the backend token is not a JWT.
	ErrMalformedToken = errors.New("malformed token")
)

// TokenInfo is what the frontend can read from a backend token. The
// signature is the backend's business; it is not verified here.
type TokenInfo struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// InspectToken decodes the claims of a JWT without verifying it.
func InspectToken(token string) (TokenInfo, error) {
	if !api.UsableToken(token) {
		return TokenInfo{}, ErrMalformedToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var info TokenInfo
	info.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	return info, nil
}

// Manager issues, resolves and ends sessions.
type Manager struct {
	store      store.SessionStore
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
	logger     *log.Logger
}

type Config struct {
	TTL        time.Duration
	CookieName string
	Secure     bool
}

func NewManager(s store.SessionStore, cfg Config, logger *log.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "bt_session"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		store:      s,
		ttl:        cfg.TTL,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		now:        time.Now,
		logger:     logger.WithComponent(log.ComponentSession),
	}
}

// SetClock replaces time.Now. Tests only.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Start stores a session for a successful login and sets the cookie. The
// session expires with the token when the token says so, and never later
// than the configured TTL.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, res api.LoginResult) (core.Session, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	if info, err := InspectToken(res.Token); err == nil {
		if !info.ExpiresAt.IsZero() && info.ExpiresAt.Before(expires) {
			expires = info.ExpiresAt
		}
	} else {
		m.logger.DebugContext(ctx, "Token is not a readable JWT", log.FieldError, err.Error())
	}

	sess := core.Session{
		ID:        uuid.NewString(),
		Token:     res.Token,
		UserID:    res.User.ID,
		Name:      res.User.Name,
		Email:     res.User.Email,
		Role:      res.User.Role,
		CreatedAt: now,
		ExpiresAt: expires,
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return core.Session{}, fmt.Errorf("start session: %w", err)
	}
	m.setCookie(w, sess.ID, expires)
	m.logger.InfoContext(ctx, "Session started",
		log.FieldUserID, sess.UserID, log.FieldRole, string(sess.Role), log.FieldOperation, log.OpLogin)
	return sess, nil
}

// Load resolves the request's session. Expired sessions are deleted.
func (m *Manager) Load(r *http.Request) (core.Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return core.Session{}, ErrNoSession
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return core.Session{}, ErrNoSession
	}
	sess, err := m.store.GetSession(r.Context(), c.Value)
	if errors.Is(err, store.ErrNotFound) {
		return core.Session{}, ErrNoSession
	}
	if err != nil {
		return core.Session{}, err
	}
	if sess.Expired(m.now()) {
		_ = m.store.DeleteSession(r.Context(), sess.ID)
		return core.Session{}, ErrNoSession
	}
	return sess, nil
}

// Get returns a stored session by id, for processes without a request.
func (m *Manager) Get(ctx context.Context, id string) (core.Session, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return core.Session{}, err
	}
	if sess.Expired(m.now()) {
		return core.Session{}, ErrNoSession
	}
	return sess, nil
}

// Update persists changed identity fields, e.g. after a profile edit.
func (m *Manager) Update(ctx context.Context, sess core.Session) error {
	return m.store.SaveSession(ctx, sess)
}

// End deletes the session, if any, and clears the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		if err := m.store.DeleteSession(r.Context(), c.Value); err != nil {
			m.logger.WarnContext(r.Context(), "Failed to delete session", log.FieldError, err.Error())
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Sweep deletes expired sessions every interval until ctx is done.
func (m *Manager) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.store.DeleteExpiredSessions(ctx, m.now())
			if err != nil {
				m.logger.Warn("Session sweep failed", log.FieldError, err.Error())
				continue
			}
			if n > 0 {
				m.logger.Debug("Expired sessions removed", "count", n)
			}
		}
	}
}

func (m *Manager) setCookie(w http.ResponseWriter, id string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type ctxKey struct{}

// NewContext returns ctx carrying sess.
func NewContext(ctx context.Context, sess core.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (core.Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(core.Session)
	return sess, ok
}
