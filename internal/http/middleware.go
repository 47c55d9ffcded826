package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
	"budgettracker/internal/middleware/trace"
	"budgettracker/internal/session"
)

// loadSession puts the request's session, if any, in the context and
// tags the request logger with it.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Load(r)
		switch {
		case err == nil:
			ctx := session.NewContext(r.Context(), sess)
			logger := log.FromContext(ctx).With(log.FieldSessionID, sess.ID, log.FieldUserID, sess.UserID)
			r = r.WithContext(log.NewContext(ctx, logger))
		case !errors.Is(err, session.ErrNoSession):
			log.FromContext(r.Context()).WarnContext(r.Context(), "Session lookup failed",
				log.FieldComponent, log.ComponentSession,
				log.FieldError, err.Error())
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession sends anonymous visitors to the landing page.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			s.redirect(w, r, "/")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin sends non-admin sessions to their dashboard.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, _ := session.FromContext(r.Context()); !sess.IsAdmin() {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Non-admin on admin route",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldPath, r.URL.Path,
				log.FieldRole, string(sess.Role))
			s.redirect(w, r, core.RoleUser.Home())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentSession is the session of a request behind requireSession.
func currentSession(r *http.Request) core.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

// clientFor returns the backend client acting as the request's user.
func (s *Server) clientFor(r *http.Request) *api.Client {
	return s.client.WithToken(currentSession(r).Token)
}

// redirect answers with 303 See Other, or with HX-Redirect for htmx
// requests that are not boosted navigations.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) && !isBoosted(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// endSession forgets the session and everything cached for it.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		s.profiles.Invalidate(sess.ID)
	}
	s.sessions.End(w, r)
	s.metrics.sessionsEnded.Add(1)
}

// recoverable reports whether the request can go on after err. An
// expired token ends the session and a refused role is sent home; both
// are answered here and reported as not recoverable.
func (s *Server) recoverable(w http.ResponseWriter, r *http.Request, err error) bool {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	sess := currentSession(r)

	switch {
	case errors.Is(err, api.ErrUnauthorized):
		logger.InfoContext(ctx, "Backend rejected the session token",
			log.FieldComponent, log.ComponentSession,
			log.FieldErrorType, log.ErrorTypeAuth)
		s.endSession(w, r)
		s.redirect(w, r, "/")
		return false

	case errors.Is(err, api.ErrForbidden):
		logger.WarnContext(ctx, "Backend refused the request",
			log.FieldErrorType, log.ErrorTypeForbidden,
			log.FieldPath, r.URL.Path,
			log.FieldRole, string(sess.Role))
		home := sess.Role.Home()
		if sess.IsAdmin() && strings.HasPrefix(r.URL.Path, "/admin") {
			// The backend no longer sees an administrator.
			sess.Role = core.RoleUser
			if uerr := s.sessions.Update(ctx, sess); uerr != nil {
				logger.WarnContext(ctx, "Failed to downgrade session role", log.FieldError, uerr.Error())
			}
			home = core.RoleUser.Home()
		}
		if r.URL.Path == home {
			s.renderError(w, r, http.StatusForbidden, "You are not allowed to see this page.")
			return false
		}
		s.redirect(w, r, home)
		return false
	}

	errorType := log.ErrorTypeNetwork
	if errors.Is(err, api.ErrNotFound) {
		errorType = log.ErrorTypeNotFound
	}
	s.logError(ctx, "Backend call failed", err, log.ComponentAPI, r.Method+" "+r.URL.Path, errorType, nil)
	return true
}

// logError records a failure with the id of the request that hit it.
func (s *Server) logError(ctx context.Context, msg string, err error, component, op, errorType string, fields log.LogFields) {
	if fields == nil {
		fields = log.NewFields()
	}
	if id := trace.GetRequestID(ctx); id != "" {
		fields.WithRequestID(id)
	}
	s.events.LogError(ctx, msg, err, component, op, errorType, fields)
}

var validationErrors = []error{
	core.ErrInvalidAmount, core.ErrInvalidDate, core.ErrInvalidType, core.ErrEmptyCategory,
	core.ErrDescriptionTooLong, core.ErrDateRange, core.ErrEmptyName, core.ErrEmptyTitle,
	core.ErrEmptyContent, core.ErrInvalidEmail, core.ErrWeakPassword,
}

// writeFailed turns the error of a create, update or delete into a
// message for the form. ok is false when the response was already
// written by recoverable.
func (s *Server) writeFailed(w http.ResponseWriter, r *http.Request, err error, fallback string) (msg string, ok bool) {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return err.Error(), true
		}
	}
	if !s.recoverable(w, r, err) {
		return "", false
	}
	return api.UserMessage(err, fallback), true
}

// failures turns the names of collections that could not be loaded into
// a warning banner.
func failures(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	return []string{"Some data could not be loaded: " + strings.Join(names, ", ") + ". Showing what is available."}
}
