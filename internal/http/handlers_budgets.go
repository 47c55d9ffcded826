package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"budgettracker/internal/services"
)

type budgetsPage struct {
	services.BudgetList
	Form BudgetForm
}

type budgetDetailPage struct {
	services.BudgetDetail
}

type budgetEditPage struct {
	Form BudgetForm
}

func (s *Server) budgetsView(w http.ResponseWriter, r *http.Request, form BudgetForm) (view, bool) {
	v := view{Title: "Budgets"}
	category := sanitizeInput(r.URL.Query().Get("category"))
	list, err := s.dashboard.Budgets(r.Context(), s.clientFor(r), category)
	if err != nil {
		if !s.recoverable(w, r, err) {
			return v, false
		}
		list = services.BudgetList{Category: category}
		v.Warnings = []string{"Your budgets could not be loaded. Please try again later."}
	} else {
		v.Warnings = failures(list.Failures)
	}
	v.Page = budgetsPage{BudgetList: list, Form: form}
	return v, true
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.budgetsView(w, r, newBudgetForm(s.today())); ok {
		s.render(w, r, http.StatusOK, "budgets", v)
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := parseBudgetForm(r)
	if b, valid := form.validate(); valid {
		err := s.ledger.SaveBudget(r.Context(), s.clientFor(r), currentSession(r), b)
		if err == nil {
			setFlash(w, NotificationSuccess, "Budget created.")
			s.redirect(w, r, "/budgets")
			return
		}
		msg, ok := s.writeFailed(w, r, err, "The budget could not be saved.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}
	if v, ok := s.budgetsView(w, r, form); ok {
		s.render(w, r, http.StatusOK, "budgets", v)
	}
}

// loadBudget answers the request itself when ok is false.
func (s *Server) loadBudget(w http.ResponseWriter, r *http.Request) (services.BudgetDetail, bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return services.BudgetDetail{}, false
	}
	d, err := s.dashboard.Budget(r.Context(), s.clientFor(r), id)
	if err != nil {
		if s.recoverable(w, r, err) {
			s.renderLoadError(w, r, err, "budget")
		}
		return services.BudgetDetail{}, false
	}
	return d, true
}

func (s *Server) handleBudgetDetail(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadBudget(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "budget_detail", view{
		Title:    d.Progress.Budget.Category + " budget",
		Warnings: failures(d.Failures),
		Page:     budgetDetailPage{BudgetDetail: d},
	})
}

func (s *Server) handleEditBudget(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadBudget(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "budget_edit", view{
		Title: "Edit budget",
		Page:  budgetEditPage{Form: budgetFormFrom(d.Progress.Budget)},
	})
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := parseBudgetForm(r)
	form.ID = id
	if b, valid := form.validate(); valid {
		err := s.ledger.SaveBudget(r.Context(), s.clientFor(r), currentSession(r), b)
		if err == nil {
			setFlash(w, NotificationSuccess, "Budget updated.")
			s.redirect(w, r, "/budgets")
			return
		}
		msg, ok := s.writeFailed(w, r, err, "The budget could not be saved.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}
	s.render(w, r, http.StatusOK, "budget_edit", view{Title: "Edit budget", Page: budgetEditPage{Form: form}})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := s.ledger.DeleteBudget(r.Context(), s.clientFor(r), currentSession(r), id); err != nil {
		msg, ok := s.writeFailed(w, r, err, "The budget could not be deleted.")
		if !ok {
			return
		}
		setFlash(w, NotificationError, msg)
	} else {
		setFlash(w, NotificationSuccess, "Budget deleted.")
	}
	s.redirect(w, r, "/budgets")
}
