package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Reasons a budget check was requested.
const (
	ReasonTransactionCreated = "transaction_created"
	ReasonTransactionUpdated = "transaction_updated"
	ReasonTransactionDeleted = "transaction_deleted"
	ReasonBudgetChanged      = "budget_changed"
)

// BudgetCheckMessage asks the worker to recompute budget alerts for a
// user. It carries only the session reference; the worker reads the
// current budgets and transactions from the backend itself.
type BudgetCheckMessage struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetCheckMessage(sessionID string, userID int64, reason string) *BudgetCheckMessage {
	return &BudgetCheckMessage{
		SessionID: sessionID,
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *BudgetCheckMessage) Validate() error {
	if m.SessionID == "" {
		return errors.New("budget check: session id is required")
	}
	if m.UserID <= 0 {
		return errors.New("budget check: user id must be positive")
	}
	return nil
}

func (m *BudgetCheckMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetCheckMessageFromJSON decodes and validates a message body.
func BudgetCheckMessageFromJSON(data []byte) (*BudgetCheckMessage, error) {
	var msg BudgetCheckMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
