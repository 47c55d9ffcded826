package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"budgettracker/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed channel", errors.New("message channel closed"), true},
		{"other", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "budgettracker", queueName: "budget_checks", logger: log.Discard()}

	if client.isCircuitOpen() {
		t.Fatal("circuit should start closed")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("circuit should open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("circuit should go half-open after the timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", client.state)
	}

	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("a failure while half-open reopens the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestClient_PublishBudgetCheck_Guards(t *testing.T) {
	client := &Client{exchangeName: "budgettracker", queueName: "budget_checks", logger: log.Discard()}
	msg := NewBudgetCheckMessage("sid", 1, ReasonTransactionCreated)

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	err := client.PublishBudgetCheck(context.Background(), msg)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}

	client.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishBudgetCheck(ctx, msg); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBudgetCheckMessage(t *testing.T) {
	msg := NewBudgetCheckMessage("sid", 42, ReasonBudgetChanged)
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"session_id":"sid"`) {
		t.Fatalf("unexpected body %s", body)
	}

	parsed, err := BudgetCheckMessageFromJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.UserID != 42 || parsed.Reason != ReasonBudgetChanged {
		t.Fatalf("parsed = %+v", parsed)
	}

	for _, bad := range []string{`{"user_id":"x"}`, `{"user_id":1}`, `{"session_id":"s","user_id":0}`, `nope`} {
		if _, err := BudgetCheckMessageFromJSON([]byte(bad)); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestProcess(t *testing.T) {
	good, _ := NewBudgetCheckMessage("sid", 1, ReasonTransactionDeleted).ToJSON()
	ok := func(context.Context, *BudgetCheckMessage) error { return nil }
	fail := func(context.Context, *BudgetCheckMessage) error { return errors.New("backend down") }

	a := &fakeAck{}
	process(context.Background(), log.Discard(), a, good, ok)
	if !a.acked {
		t.Error("successful message should be acked")
	}

	a = &fakeAck{}
	process(context.Background(), log.Discard(), a, []byte("{"), ok)
	if !a.nacked || a.requeued {
		t.Error("malformed message should be dropped without requeue")
	}

	a = &fakeAck{}
	process(context.Background(), log.Discard(), a, good, fail)
	if !a.nacked || !a.requeued {
		t.Error("handler failure should requeue")
	}
}
