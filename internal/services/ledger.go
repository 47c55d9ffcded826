// Package services orchestrates api calls, pure aggregates and side
// effects for the screens and the worker.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budgettracker/internal/amqp"
	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
)

const (
	publishQueueSize = 64
	publishTimeout   = 10 * time.Second
)

type publishJob struct {
	ctx context.Context
	msg *amqp.BudgetCheckMessage
}

// LedgerService performs the writes that can move a budget across an
// alert threshold and asks the worker to re-check budgets afterwards.
// Budget checks go through a single background publisher; mutations
// never wait for the broker.
type LedgerService struct {
	publisher amqp.Publisher
	logger    *log.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan publishJob
	done   chan struct{}
}

// NewLedgerService builds the service. publisher may be nil when no
// broker is configured; mutations then simply skip the event. Call Close
// on shutdown to flush pending budget checks.
func NewLedgerService(publisher amqp.Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &LedgerService{publisher: publisher, logger: logger.WithComponent(log.ComponentApp)}
	if publisher != nil {
		s.queue = make(chan publishJob, publishQueueSize)
		s.done = make(chan struct{})
		go s.run()
	}
	return s
}

// Close stops accepting budget checks and waits until the queued ones
// are sent or ctx expires.
func (s *LedgerService) Close(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *LedgerService) run() {
	defer close(s.done)
	for job := range s.queue {
		ctx, cancel := context.WithTimeout(job.ctx, publishTimeout)
		if err := s.publisher.PublishBudgetCheck(ctx, job.msg); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish budget check",
				log.FieldError, err.Error(),
				log.FieldUserID, job.msg.UserID,
				"reason", job.msg.Reason)
		}
		cancel()
	}
}

func (s *LedgerService) CreateTransaction(ctx context.Context, c *api.Client, sess core.Session, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.UserID = sess.UserID
	created, err := c.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.publish(ctx, sess, amqp.ReasonTransactionCreated)
	return created, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, c *api.Client, sess core.Session, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.UserID = sess.UserID
	if err := c.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, sess, amqp.ReasonTransactionUpdated)
	return nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, c *api.Client, sess core.Session, id int64) error {
	if err := c.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, sess, amqp.ReasonTransactionDeleted)
	return nil
}

// SaveBudget creates b when it has no id and updates it otherwise.
func (s *LedgerService) SaveBudget(ctx context.Context, c *api.Client, sess core.Session, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b.UserID = sess.UserID
	var err error
	if b.ID == 0 {
		err = c.CreateBudget(ctx, b)
	} else {
		err = c.UpdateBudget(ctx, b)
	}
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	s.publish(ctx, sess, amqp.ReasonBudgetChanged)
	return nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, c *api.Client, sess core.Session, id int64) error {
	if err := c.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.publish(ctx, sess, amqp.ReasonBudgetChanged)
	return nil
}

// publish queues a budget check and returns at once. The mutation already
// succeeded, so a full queue or a closed service only costs the event.
func (s *LedgerService) publish(ctx context.Context, sess core.Session, reason string) {
	if s.queue == nil {
		return
	}
	job := publishJob{
		ctx: context.WithoutCancel(ctx),
		msg: amqp.NewBudgetCheckMessage(sess.ID, sess.UserID, reason),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.WarnContext(ctx, "Budget check dropped, ledger is shutting down",
			log.FieldUserID, sess.UserID, "reason", reason)
		return
	}
	select {
	case s.queue <- job:
	default:
		s.logger.WarnContext(ctx, "Budget check dropped, publish queue is full",
			log.FieldUserID, sess.UserID, "reason", reason)
	}
}
