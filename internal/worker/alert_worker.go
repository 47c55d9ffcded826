// Package worker runs the budget-check consumer of cmd/budget-worker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgettracker/internal/amqp"
	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
	"budgettracker/internal/store"
)

// Consumer delivers budget-check messages to a handler until ctx ends.
type Consumer interface {
	ConsumeBudgetChecks(ctx context.Context, handler amqp.Handler) error
}

// Refresher recomputes and stores a user's budget alerts.
type Refresher interface {
	Refresh(ctx context.Context, c *api.Client, sess core.Session) ([]core.BudgetAlert, error)
}

// AlertWorker re-checks budgets whenever the web process reports a
// mutation.
type AlertWorker struct {
	sessions store.SessionStore
	now      func() time.Time
	client   *api.Client
	alerts   Refresher
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	lastErr error
}

func NewAlertWorker(sessions store.SessionStore, client *api.Client, alerts Refresher, logger *log.Logger) *AlertWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &AlertWorker{
		sessions: sessions,
		now:      time.Now,
		client:   client,
		alerts:   alerts,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleBudgetCheck processes one message. Messages whose session is gone
// or whose token the backend rejects are dropped; other failures are
// returned so the message is requeued.
func (w *AlertWorker) HandleBudgetCheck(ctx context.Context, msg *amqp.BudgetCheckMessage) error {
	sess, err := w.sessions.GetSession(ctx, msg.SessionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sess.Expired(w.now())) {
		w.logger.InfoContext(ctx, "Skipping budget check for ended session",
			log.FieldSessionID, msg.SessionID, log.FieldUserID, msg.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != msg.UserID {
		w.logger.WarnContext(ctx, "Budget check user does not match session",
			log.FieldSessionID, msg.SessionID, log.FieldUserID, msg.UserID)
		return nil
	}

	alerts, err := w.alerts.Refresh(ctx, w.client.WithToken(sess.Token), sess)
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrForbidden) {
		w.logger.InfoContext(ctx, "Backend rejected session token",
			log.FieldSessionID, msg.SessionID, log.FieldError, err.Error())
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Budget check completed",
		log.FieldUserID, sess.UserID,
		"reason", msg.Reason,
		"alerts", len(alerts))
	return nil
}

// Start consumes from c in the background. It fails if already running.
func (w *AlertWorker) Start(ctx context.Context, c Consumer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("alert worker is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	go func() {
		defer close(w.doneCh)
		err := c.ConsumeBudgetChecks(ctx, w.HandleBudgetCheck)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("Consumer stopped", log.FieldError, err.Error())
		}
		w.mu.Lock()
		w.lastErr = err
		w.running = false
		w.mu.Unlock()
	}()

	w.logger.InfoContext(ctx, "Alert worker started")
	return nil
}

// Done is closed when the consumer goroutine exits.
func (w *AlertWorker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

// Err is the error the consumer stopped with, if any.
func (w *AlertWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Stop cancels consumption and waits for it to finish or ctx to end.
func (w *AlertWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		w.logger.InfoContext(ctx, "Alert worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Alert worker stop timed out")
		return ctx.Err()
	}
}

func (w *AlertWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
