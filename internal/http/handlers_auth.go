package http

import (
	"errors"
	"net/http"

	"budgettracker/internal/api"
	"budgettracker/internal/log"
	"budgettracker/internal/session"
)

type loginPage struct {
	Form LoginForm
}

type signupPage struct {
	Form SignupForm
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		s.redirect(w, r, sess.Role.Home())
		return
	}
	s.render(w, r, http.StatusOK, "landing", view{Title: "Budget Tracker"})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		s.redirect(w, r, sess.Role.Home())
		return
	}
	s.render(w, r, http.StatusOK, "login", view{Title: "Sign in", Page: loginPage{}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := LoginForm{Email: postValue(r, "email"), Errors: fieldErrors{}}
	password := r.PostFormValue("password")
	if form.Email == "" {
		form.Errors.add("email", "Enter your email.")
	}
	if password == "" {
		form.Errors.add("password", "Enter your password.")
	}
	if len(form.Errors) > 0 {
		s.render(w, r, http.StatusOK, "login", view{Title: "Sign in", Page: loginPage{Form: form}})
		return
	}

	res, err := s.client.Login(ctx, form.Email, password)
	if err != nil {
		s.metrics.loginFailures.Add(1)
		msg := "The service is unavailable. Please try again later."
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrBadRequest) || errors.Is(err, api.ErrNotFound) {
			msg = "Invalid email or password."
			log.FromContext(ctx).InfoContext(ctx, "Login rejected",
				log.FieldOperation, log.OpLogin, log.FieldErrorType, log.ErrorTypeAuth)
		} else {
			s.logError(ctx, "Login failed", err, log.ComponentAPI, log.OpLogin, log.ErrorTypeNetwork, nil)
		}
		form.Errors.add(formField, msg)
		s.render(w, r, http.StatusOK, "login", view{Title: "Sign in", Page: loginPage{Form: form}})
		return
	}

	// A previous session in this browser is replaced.
	if old, ok := session.FromContext(ctx); ok {
		s.profiles.Invalidate(old.ID)
		s.sessions.End(w, r)
	}
	sess, err := s.sessions.Start(ctx, w, res)
	if err != nil {
		s.logError(ctx, "Failed to start session", err, log.ComponentSession, log.OpLogin, log.ErrorTypeDatabase, nil)
		form.Errors.add(formField, "Could not sign you in. Please try again.")
		s.render(w, r, http.StatusOK, "login", view{Title: "Sign in", Page: loginPage{Form: form}})
		return
	}
	s.metrics.logins.Add(1)
	s.redirect(w, r, sess.Role.Home())
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup", view{Title: "Create account", Page: signupPage{}})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form, signup := parseSignupForm(r)
	if !form.validate(signup, r.PostFormValue("confirm")) {
		s.render(w, r, http.StatusOK, "signup", view{Title: "Create account", Page: signupPage{Form: form}})
		return
	}

	if err := s.client.Signup(ctx, signup); err != nil {
		s.logError(ctx, "Signup failed", err, log.ComponentAPI, log.OpSignup, log.ErrorTypeValidation, nil)
		form.Errors.add(formField, api.UserMessage(err, "Could not create the account. Please try again later."))
		s.render(w, r, http.StatusOK, "signup", view{Title: "Create account", Page: signupPage{Form: form}})
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Account created", log.FieldOperation, log.OpSignup)
	setFlash(w, NotificationSuccess, "Account created. You can sign in now.")
	s.redirect(w, r, "/login")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Signed out",
			log.FieldOperation, log.OpLogout, log.FieldUserID, sess.UserID)
	}
	s.endSession(w, r)
	s.redirect(w, r, "/")
}
