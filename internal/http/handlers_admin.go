package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
	"budgettracker/internal/services"
)

type adminDashboardPage struct {
	services.AdminDashboard
	Bars []trendBar
}

type adminUsersPage struct {
	Rows []userRow
}

type userRow struct {
	User core.User
	Form UserForm
	Self bool
}

type adminTransactionsPage struct {
	services.AdminTransactions
}

// PageURL keeps the user filter when moving to page n.
func (p adminTransactionsPage) PageURL(n int) string {
	return adminTxQuery(p.UserID, n)
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	v := view{Title: "Admin"}
	d, err := s.admin.Dashboard(r.Context(), s.clientFor(r))
	if err != nil {
		if !s.recoverable(w, r, err) {
			return
		}
		d = services.AdminDashboard{}
		v.Warnings = []string{"The overview could not be loaded. Please try again later."}
	} else {
		v.Warnings = failures(d.Failures)
	}
	v.Page = adminDashboardPage{AdminDashboard: d, Bars: trendBars(d.Trend)}
	s.render(w, r, http.StatusOK, "admin_dashboard", v)
}

// usersView lists every user as an editable row. failed, when set,
// replaces the row of the same id so its errors show.
func (s *Server) usersView(w http.ResponseWriter, r *http.Request, failed *UserForm) (view, bool) {
	v := view{Title: "Users"}
	users, err := s.clientFor(r).AdminUsers(r.Context())
	if err != nil {
		if !s.recoverable(w, r, err) {
			return v, false
		}
		v.Warnings = []string{"The users could not be loaded. Please try again later."}
	}
	self := currentSession(r).UserID
	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		row := userRow{User: u, Form: userFormFrom(u), Self: u.ID == self}
		if failed != nil && failed.ID == u.ID {
			row.Form = *failed
		}
		rows = append(rows, row)
	}
	v.Page = adminUsersPage{Rows: rows}
	return v, true
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.usersView(w, r, nil); ok {
		s.render(w, r, http.StatusOK, "admin_users", v)
	}
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	form := parseUserForm(r, id)
	update := api.UserUpdate{Name: form.Name, Email: form.Email, Role: form.Role}
	err := s.admin.UpdateUser(ctx, s.clientFor(r), id, update)
	if err == nil {
		sess := currentSession(r)
		if id == sess.UserID {
			// Editing oneself also changes what this session shows.
			sess.Name, sess.Email, sess.Role = form.Name, form.Email, core.Role(form.Role)
			if uerr := s.sessions.Update(ctx, sess); uerr != nil {
				log.FromContext(ctx).WarnContext(ctx, "Failed to refresh session after self edit", log.FieldError, uerr.Error())
			}
			s.profiles.Invalidate(sess.ID)
			if !sess.IsAdmin() {
				setFlash(w, NotificationInfo, "You are no longer an administrator.")
				s.redirect(w, r, sess.Role.Home())
				return
			}
		}
		setFlash(w, NotificationSuccess, "User updated.")
		s.redirect(w, r, "/admin/users")
		return
	}

	msg, ok := s.writeFailed(w, r, err, "The user could not be saved.")
	if !ok {
		return
	}
	form.Errors = fieldErrors{formField: msg}
	if v, ok := s.usersView(w, r, &form); ok {
		s.render(w, r, http.StatusOK, "admin_users", v)
	}
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if id == currentSession(r).UserID {
		setFlash(w, NotificationError, "You cannot delete your own account.")
		s.redirect(w, r, "/admin/users")
		return
	}
	if err := s.clientFor(r).AdminDeleteUser(r.Context(), id); err != nil {
		msg, ok := s.writeFailed(w, r, err, "The user could not be deleted.")
		if !ok {
			return
		}
		setFlash(w, NotificationError, msg)
	} else {
		log.FromContext(r.Context()).InfoContext(r.Context(), "User deleted by admin",
			log.FieldOperation, log.OpDelete, log.FieldEntityID, id)
		setFlash(w, NotificationSuccess, "User deleted.")
	}
	s.redirect(w, r, "/admin/users")
}

// adminTxQuery builds the list URL for a user filter and page.
func adminTxQuery(userID int64, page int) string {
	v := url.Values{}
	if userID > 0 {
		v.Set("user", strconv.FormatInt(userID, 10))
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return "/admin/transactions"
	}
	return "/admin/transactions?" + v.Encode()
}

// handleAdminTransactions lists all transactions, optionally for one
// user. The filter form sends no page, so changing it starts at page 1.
func (s *Server) handleAdminTransactions(w http.ResponseWriter, r *http.Request) {
	v := view{Title: "All transactions"}
	userID, _ := parseID(r.URL.Query().Get("user"))
	page := queryInt(r, "page", 1)

	list, failed, err := s.admin.Transactions(r.Context(), s.clientFor(r), userID, page)
	if err != nil {
		if !s.recoverable(w, r, err) {
			return
		}
		list = services.AdminTransactions{UserID: userID, Page: core.Paginate([]core.Transaction(nil), 1, s.cfg.AdminPageSize)}
		v.Warnings = []string{"The transactions could not be loaded. Please try again later."}
	} else {
		v.Warnings = failures(failed)
	}

	v.Page = adminTransactionsPage{AdminTransactions: list}
	if hxTarget(r) == "admin-transaction-table" {
		s.renderFragment(w, r, "admin_transactions", "admin_transaction_table", v)
		return
	}
	s.render(w, r, http.StatusOK, "admin_transactions", v)
}

func (s *Server) handleAdminDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	userID, _ := parseID(r.PostFormValue("user"))
	page, _ := strconv.Atoi(r.PostFormValue("page"))
	back := adminTxQuery(userID, page)

	if err := s.clientFor(r).AdminDeleteTransaction(r.Context(), id); err != nil {
		msg, ok := s.writeFailed(w, r, err, "The transaction could not be deleted.")
		if !ok {
			return
		}
		setFlash(w, NotificationError, msg)
	} else {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted by admin",
			log.FieldOperation, log.OpDelete, log.FieldEntityID, id)
		setFlash(w, NotificationSuccess, "Transaction deleted.")
	}
	s.redirect(w, r, back)
}
