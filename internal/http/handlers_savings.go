package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
)

type savingsPage struct {
	Goals []core.SavingsProgress
	Stats core.SavingsStats
	Form  SavingsForm
}

type savingsEditPage struct {
	Form SavingsForm
}

func (s *Server) savingsView(w http.ResponseWriter, r *http.Request, form SavingsForm) (view, bool) {
	v := view{Title: "Savings"}
	goals, err := s.clientFor(r).SavingsGoals(r.Context())
	if err != nil {
		if !s.recoverable(w, r, err) {
			return v, false
		}
		v.Warnings = []string{"Your savings goals could not be loaded. Please try again later."}
	}
	v.Page = savingsPage{
		Goals: core.SavingsProgressAll(goals),
		Stats: core.SavingsTotals(goals),
		Form:  form,
	}
	return v, true
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.savingsView(w, r, newSavingsForm()); ok {
		s.render(w, r, http.StatusOK, "savings", v)
	}
}

func (s *Server) handleCreateSavings(w http.ResponseWriter, r *http.Request) {
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := parseSavingsForm(r)
	if g, valid := form.validate(); valid {
		g.UserID = currentSession(r).UserID
		err := g.Validate()
		if err == nil {
			err = s.clientFor(r).CreateSavingsGoal(r.Context(), g)
		}
		if err == nil {
			log.FromContext(r.Context()).InfoContext(r.Context(), "Savings goal created", log.FieldOperation, log.OpCreate)
			setFlash(w, NotificationSuccess, "Savings goal created.")
			s.redirect(w, r, "/savings")
			return
		}
		msg, ok := s.writeFailed(w, r, err, "The savings goal could not be saved.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}
	if v, ok := s.savingsView(w, r, form); ok {
		s.render(w, r, http.StatusOK, "savings", v)
	}
}

// findGoal looks the goal up in the user's list; the backend has no
// single-goal read. It answers the request itself when ok is false.
func (s *Server) findGoal(w http.ResponseWriter, r *http.Request, c *api.Client) (core.SavingsGoal, bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return core.SavingsGoal{}, false
	}
	goals, err := c.SavingsGoals(r.Context())
	if err != nil {
		if s.recoverable(w, r, err) {
			s.renderLoadError(w, r, err, "savings goal")
		}
		return core.SavingsGoal{}, false
	}
	for _, g := range goals {
		if g.ID == id {
			return g, true
		}
	}
	s.renderLoadError(w, r, fmt.Errorf("savings goal %d: %w", id, api.ErrNotFound), "savings goal")
	return core.SavingsGoal{}, false
}

func (s *Server) handleEditSavings(w http.ResponseWriter, r *http.Request) {
	g, ok := s.findGoal(w, r, s.clientFor(r))
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "savings_edit", view{
		Title: "Edit savings goal",
		Page:  savingsEditPage{Form: savingsFormFrom(g)},
	})
}

func (s *Server) handleUpdateSavings(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := parseSavingsForm(r)
	form.ID = id
	if g, valid := form.validate(); valid {
		g.UserID = currentSession(r).UserID
		err := s.clientFor(r).UpdateSavingsGoal(r.Context(), g)
		if err == nil {
			setFlash(w, NotificationSuccess, "Savings goal updated.")
			s.redirect(w, r, "/savings")
			return
		}
		msg, ok := s.writeFailed(w, r, err, "The savings goal could not be saved.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}
	s.render(w, r, http.StatusOK, "savings_edit", view{Title: "Edit savings goal", Page: savingsEditPage{Form: form}})
}

func (s *Server) handleDeleteSavings(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := s.clientFor(r).DeleteSavingsGoal(r.Context(), id); err != nil {
		msg, ok := s.writeFailed(w, r, err, "The savings goal could not be deleted.")
		if !ok {
			return
		}
		setFlash(w, NotificationError, msg)
	} else {
		setFlash(w, NotificationSuccess, "Savings goal deleted.")
	}
	s.redirect(w, r, "/savings")
}

// handleDeposit adds the posted amount to the goal's current amount.
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	c := s.clientFor(r)
	g, ok := s.findGoal(w, r, c)
	if !ok {
		return
	}
	form := DepositForm{GoalID: g.ID, Amount: postValue(r, "amount")}
	amount, valid := form.validate()
	if !valid {
		setFlash(w, NotificationError, form.Errors["amount"])
		s.redirect(w, r, "/savings")
		return
	}

	updated, err := core.Deposit(g, amount)
	if err == nil {
		err = c.UpdateSavingsGoal(r.Context(), updated)
	}
	if err != nil {
		msg, ok := s.writeFailed(w, r, err, "The deposit could not be saved.")
		if !ok {
			return
		}
		setFlash(w, NotificationError, msg)
		s.redirect(w, r, "/savings")
		return
	}
	setFlash(w, NotificationSuccess, fmt.Sprintf("Added %s to %s.", amount.Format(s.cfg.CurrencySymbol), g.Name))
	s.redirect(w, r, "/savings")
}
