package http

import (
	"net/http"

	"budgettracker/internal/core"
	"budgettracker/internal/log"
)

const exportHistoryLimit = 10

type profilePage struct {
	User    core.User
	Form    ProfileForm
	Exports []core.ExportRecord
}

type notificationsPage struct {
	Alerts  []core.BudgetAlert
	History []core.StoredAlert
}

func (s *Server) profileView(w http.ResponseWriter, r *http.Request, form *ProfileForm) (view, bool) {
	ctx := r.Context()
	sess := currentSession(r)
	v := view{Title: "Profile"}

	c := s.clientFor(r)
	user, err := s.profiles.Get(ctx, sess.ID, c.Profile)
	if err != nil {
		if !s.recoverable(w, r, err) {
			return v, false
		}
		user = core.User{ID: sess.UserID, Name: sess.Name, Email: sess.Email, Role: sess.Role}
		v.Warnings = []string{"Your profile could not be loaded. Showing what this session knows."}
	}

	exports, err := s.exports.History(ctx, sess.UserID, exportHistoryLimit)
	if err != nil {
		s.logError(ctx, "Failed to load export history", err, log.ComponentStorage, log.OpList, log.ErrorTypeDatabase, nil)
		v.Warnings = append(v.Warnings, failures([]string{"export history"})...)
	}

	page := profilePage{User: user, Form: profileFormFrom(user), Exports: exports}
	if form != nil {
		page.Form = *form
	}
	v.Page = page
	return v, true
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.profileView(w, r, nil); ok {
		s.render(w, r, http.StatusOK, "profile", v)
	}
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := parseProfileForm(r)
	if update, valid := form.validate(); valid {
		sess := currentSession(r)
		err := s.clientFor(r).UpdateProfile(ctx, update)
		if err == nil {
			s.profiles.Invalidate(sess.ID)
			sess.Name, sess.Email = update.Name, update.Email
			if err := s.sessions.Update(ctx, sess); err != nil {
				log.FromContext(ctx).WarnContext(ctx, "Failed to refresh session after profile update",
					log.FieldError, err.Error())
			}
			setFlash(w, NotificationSuccess, "Profile updated.")
			s.redirect(w, r, "/profile")
			return
		}
		msg, ok := s.writeFailed(w, r, err, "Your profile could not be saved.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}
	if v, ok := s.profileView(w, r, &form); ok {
		s.render(w, r, http.StatusOK, "profile", v)
	}
}

// handleNotifications recomputes the live budget alerts, which also
// records them and notifies level changes, and lists the stored history.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := currentSession(r)
	v := view{Title: "Notifications"}

	alerts, err := s.alerts.Refresh(ctx, s.clientFor(r), sess)
	if err != nil {
		if !s.recoverable(w, r, err) {
			return
		}
		v.Warnings = []string{"Current budget alerts could not be computed. Showing the last known ones."}
	}
	history, err := s.alerts.History(ctx, sess.UserID)
	if err != nil {
		s.logError(ctx, "Failed to load alert history", err, log.ComponentStorage, log.OpList, log.ErrorTypeDatabase, nil)
		v.Warnings = append(v.Warnings, failures([]string{"alert history"})...)
	}
	v.Page = notificationsPage{Alerts: alerts, History: history}
	s.render(w, r, http.StatusOK, "notifications", v)
}
