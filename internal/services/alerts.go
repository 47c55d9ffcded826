package services

import (
	"context"
	"fmt"
	"time"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
	"budgettracker/internal/notify"
	"budgettracker/internal/store"
)

// AlertService keeps the stored budget alerts of a user in line with the
// backend and notifies when an alert changes level.
type AlertService struct {
	store    store.AlertStore
	notifier notify.Notifier
	symbol   string
	now      func() time.Time
	logger   *log.Logger
}

func NewAlertService(st store.AlertStore, n notify.Notifier, symbol string, logger *log.Logger) *AlertService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AlertService{
		store:    st,
		notifier: n,
		symbol:   symbol,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentNotify),
	}
}

// Refresh recomputes the user's alerts from current budgets and
// transactions, stores them, drops alerts of budgets that no longer
// alert, and returns the live alerts.
func (s *AlertService) Refresh(ctx context.Context, c *api.Client, sess core.Session) ([]core.BudgetAlert, error) {
	budgets, err := c.Budgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	txs, err := c.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return s.Apply(ctx, sess, core.BudgetAlerts(budgets, txs))
}

// Apply stores alerts for the session's user and notifies level changes.
func (s *AlertService) Apply(ctx context.Context, sess core.Session, alerts []core.BudgetAlert) ([]core.BudgetAlert, error) {
	now := s.now()
	keep := make([]int64, 0, len(alerts))
	for _, a := range alerts {
		keep = append(keep, a.BudgetID)
		changed, err := s.store.UpsertAlert(ctx, sess.UserID, a, now)
		if err != nil {
			return nil, fmt.Errorf("store alert: %w", err)
		}
		if changed {
			s.notify(ctx, sess, a)
		}
	}
	if err := s.store.PruneAlerts(ctx, sess.UserID, keep); err != nil {
		return nil, fmt.Errorf("prune alerts: %w", err)
	}
	return alerts, nil
}

// History returns the stored alerts of a user.
func (s *AlertService) History(ctx context.Context, userID int64) ([]core.StoredAlert, error) {
	return s.store.ListAlerts(ctx, userID)
}

func (s *AlertService) notify(ctx context.Context, sess core.Session, a core.BudgetAlert) {
	if s.notifier == nil {
		return
	}
	text := a.Message(s.symbol)
	if sess.Name != "" {
		text = sess.Name + ": " + text
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.WarnContext(ctx, "Failed to send budget notification",
			log.FieldError, err.Error(),
			log.FieldUserID, sess.UserID,
			log.FieldAlertLevel, string(a.Level))
	}
}
