package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/amqp"
	"budgettracker/internal/api"
	"budgettracker/internal/api/apitest"
	"budgettracker/internal/core"
	"budgettracker/internal/notify"
	"budgettracker/internal/store/memory"
)

type fixture struct {
	backend *apitest.Backend
	user    core.User
	admin   core.User
	client  *api.Client
	sess    core.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.New(t)
	user := b.AddUser(core.User{Name: "Ann", Email: "ann@example.com"}, "secret")
	admin := b.AddUser(core.User{Name: "Root", Email: "root@example.com", Role: core.RoleAdmin}, "secret")
	c, err := api.New(b.URL(), api.WithTimeout(2*time.Second))
	require.NoError(t, err)
	tok := b.TokenFor(user.ID)
	return &fixture{
		backend: b,
		user:    user,
		admin:   admin,
		client:  c.WithToken(tok),
		sess:    core.Session{ID: "sess-1", Token: tok, UserID: user.ID, Name: user.Name, Role: core.RoleUser},
	}
}

func (f *fixture) seed(now time.Time) {
	f.backend.Lock()
	defer f.backend.Unlock()
	y, m := now.Year(), int(now.Month())
	f.backend.Transactions = []core.Transaction{
		{ID: 1, UserID: f.user.ID, Type: core.Income, Amount: core.Cents(300000), Category: "Salary", Date: core.NewDate(y, m, 1)},
		{ID: 2, UserID: f.user.ID, Type: core.Expense, Amount: core.Cents(8000), Category: "Food", Date: core.NewDate(y, m, 2)},
		{ID: 3, UserID: f.admin.ID, Type: core.Expense, Amount: core.Cents(1000), Category: "Car", Date: core.NewDate(y, m, 3)},
	}
	f.backend.Budgets = []core.Budget{
		{ID: 10, UserID: f.user.ID, Category: "Food", Amount: core.Cents(10000), StartDate: core.NewDate(y, m, 1), EndDate: core.NewDate(y, m, 28)},
	}
	f.backend.Savings = []core.SavingsGoal{
		{ID: 20, UserID: f.user.ID, Name: "Bike", Target: core.Cents(50000), Current: core.Cents(50000), Deadline: core.NewDate(y+1, 1, 1)},
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.BudgetCheckMessage
	err  error
}

func (p *recordingPublisher) PublishBudgetCheck(_ context.Context, m *amqp.BudgetCheckMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, m)
	return p.err
}

func TestLedgerPublishesAfterMutations(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLedgerService(pub, nil)
	ctx := context.Background()

	tx := core.Transaction{Type: core.Expense, Amount: core.Cents(1234), Category: "Food", Date: core.NewDate(2025, 3, 1)}
	created, err := svc.CreateTransaction(ctx, f.client, f.sess, tx)
	require.NoError(t, err, "a publish failure does not fail the write")
	assert.NotZero(t, created.ID)

	created.Description = "lunch"
	require.NoError(t, svc.UpdateTransaction(ctx, f.client, f.sess, created))
	require.NoError(t, svc.DeleteTransaction(ctx, f.client, f.sess, created.ID))

	b := core.Budget{Category: "Food", Amount: core.Cents(100), StartDate: core.NewDate(2025, 1, 1), EndDate: core.NewDate(2025, 1, 31)}
	require.NoError(t, svc.SaveBudget(ctx, f.client, f.sess, b))
	require.NoError(t, svc.Close(ctx), "Close drains the queued checks")

	require.Len(t, pub.msgs, 4)
	assert.Equal(t, amqp.ReasonTransactionCreated, pub.msgs[0].Reason)
	assert.Equal(t, amqp.ReasonBudgetChanged, pub.msgs[3].Reason)
	assert.Equal(t, f.sess.ID, pub.msgs[0].SessionID)
	assert.Equal(t, f.user.ID, pub.msgs[0].UserID)
}

// blockingPublisher holds every publish until release is closed, like a
// broker that is being dialled.
type blockingPublisher struct {
	recordingPublisher
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingPublisher) PublishBudgetCheck(ctx context.Context, m *amqp.BudgetCheckMessage) error {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return p.recordingPublisher.PublishBudgetCheck(ctx, m)
}

func TestLedgerDoesNotWaitForBroker(t *testing.T) {
	f := newFixture(t)
	pub := &blockingPublisher{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewLedgerService(pub, nil)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	tx := core.Transaction{Type: core.Expense, Amount: core.Cents(500), Category: "Food", Date: core.NewDate(2025, 3, 1)}

	returned := make(chan error, 1)
	go func() {
		_, err := svc.CreateTransaction(reqCtx, f.client, f.sess, tx)
		returned <- err
	}()
	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("CreateTransaction waited for the publisher")
	}

	// The request is over; its context must not cancel the pending check.
	cancelReq()
	<-pub.started
	close(pub.release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Close(ctx))

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, amqp.ReasonTransactionCreated, pub.msgs[0].Reason)
}

func TestLedgerAfterClose(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc := NewLedgerService(pub, nil)
	require.NoError(t, svc.Close(context.Background()))
	require.NoError(t, svc.Close(context.Background()), "Close is idempotent")

	b := core.Budget{Category: "Food", Amount: core.Cents(100), StartDate: core.NewDate(2025, 1, 1), EndDate: core.NewDate(2025, 1, 31)}
	require.NoError(t, svc.SaveBudget(context.Background(), f.client, f.sess, b), "writes still succeed")
	assert.Empty(t, pub.msgs)

	assert.NoError(t, NewLedgerService(nil, nil).Close(context.Background()))
}

func TestLedgerValidatesBeforeCalling(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc := NewLedgerService(pub, nil)

	_, err := svc.CreateTransaction(context.Background(), f.client, f.sess, core.Transaction{Type: core.Expense})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, pub.msgs)
	assert.Empty(t, f.backend.Transactions)
}

func TestDashboardLoad(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.seed(now)

	d, err := NewDashboardService(nil).Load(context.Background(), f.client, core.ThisMonth)
	require.NoError(t, err)
	assert.Empty(t, d.Failures)
	assert.Equal(t, core.Cents(292000), d.Wallet.Balance())
	assert.Equal(t, core.Cents(8000), d.PeriodSummary.Expenses)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, core.AlertWarning, d.Alerts[0].Level)
	assert.Equal(t, 1, d.Savings.Completed)
	assert.Len(t, d.Recent, 2, "only the session user's transactions")
}

func TestDashboardPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(time.Now())
	f.backend.Fail("/api/budget", http.StatusInternalServerError)

	d, err := NewDashboardService(nil).Load(context.Background(), f.client, core.ThisMonth)
	require.NoError(t, err)
	assert.Equal(t, []string{"budgets"}, d.Failures)
	assert.Empty(t, d.Budgets)
	assert.NotZero(t, d.Wallet.Income)
}

func TestDashboardUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.backend.Revoke(f.sess.Token)

	_, err := NewDashboardService(nil).Load(context.Background(), f.client, core.ThisMonth)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestAdminDashboard(t *testing.T) {
	f := newFixture(t)
	f.seed(time.Now())
	c := f.client.WithToken(f.backend.TokenFor(f.admin.ID))
	f.backend.Fail("/api/admin/savings", http.StatusBadGateway)

	d, err := NewAdminService(10, nil).Dashboard(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 2, d.UserCount)
	assert.Equal(t, 2, d.ActiveUsers)
	assert.Equal(t, core.Cents(9000), d.Totals.Expenses)
	assert.Equal(t, core.Cents(10000), d.BudgetTotal)
	assert.Equal(t, []string{"savings"}, d.Failures)
	assert.Zero(t, d.Savings.Saved)
}

func TestAdminForbiddenForUsers(t *testing.T) {
	f := newFixture(t)
	_, err := NewAdminService(10, nil).Dashboard(context.Background(), f.client)
	assert.ErrorIs(t, err, api.ErrForbidden)

	_, _, err = NewAdminService(10, nil).Transactions(context.Background(), f.client, 0, 1)
	assert.ErrorIs(t, err, api.ErrForbidden)

	err = NewAdminService(10, nil).UpdateUser(context.Background(), f.client, f.user.ID, api.UserUpdate{Name: "X", Email: "x@y"})
	assert.ErrorIs(t, err, api.ErrForbidden)
}

func TestAdminTransactionsPaging(t *testing.T) {
	f := newFixture(t)
	f.backend.Lock()
	for i := 1; i <= 25; i++ {
		uid := f.user.ID
		if i%5 == 0 {
			uid = f.admin.ID
		}
		f.backend.Transactions = append(f.backend.Transactions, core.Transaction{
			ID: int64(i), UserID: uid, Type: core.Expense, Amount: core.Cents(100), Category: "Food", Date: core.NewDate(2025, 1, i),
		})
	}
	f.backend.Unlock()
	c := f.client.WithToken(f.backend.TokenFor(f.admin.ID))
	svc := NewAdminService(10, nil)

	page, failures, err := svc.Transactions(context.Background(), c, 0, 3)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, 3, page.Page.TotalPages)
	assert.Len(t, page.Page.Items, 5)

	page, _, err = svc.Transactions(context.Background(), c, f.admin.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page.Number, "page is clamped")
	assert.Len(t, page.Page.Items, 5)
	assert.Equal(t, "Root", page.UserName(f.admin.ID))
}

func TestAdminUpdateUserValidation(t *testing.T) {
	f := newFixture(t)
	c := f.client.WithToken(f.backend.TokenFor(f.admin.ID))
	svc := NewAdminService(10, nil)

	assert.ErrorIs(t, svc.UpdateUser(context.Background(), c, f.user.ID, api.UserUpdate{Email: "a@b"}), core.ErrEmptyName)
	assert.ErrorIs(t, svc.UpdateUser(context.Background(), c, f.user.ID, api.UserUpdate{Name: "A", Email: "ab"}), core.ErrInvalidEmail)

	require.NoError(t, svc.UpdateUser(context.Background(), c, f.user.ID, api.UserUpdate{Name: "Ann B", Email: "ann@example.com", Role: "admin"}))
	f.backend.Lock()
	defer f.backend.Unlock()
	assert.Equal(t, core.RoleAdmin, f.backend.Users[0].Role)
}

func TestAlertServiceNotifiesOnLevelChange(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.seed(now)
	rec := &notify.Recorder{}
	st := memory.New()
	svc := NewAlertService(st, rec, "$", nil)
	ctx := context.Background()

	alerts, err := svc.Refresh(ctx, f.client, f.sess)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Len(t, rec.Sent(), 1)
	assert.Contains(t, rec.Sent()[0], "Ann: Budget for Food")

	_, err = svc.Refresh(ctx, f.client, f.sess)
	require.NoError(t, err)
	assert.Len(t, rec.Sent(), 1, "same level, no second message")

	f.backend.Lock()
	f.backend.Transactions = append(f.backend.Transactions, core.Transaction{
		ID: 4, UserID: f.user.ID, Type: core.Expense, Amount: core.Cents(5000), Category: "food", Date: core.NewDate(now.Year(), int(now.Month()), 3),
	})
	f.backend.Unlock()

	alerts, err = svc.Refresh(ctx, f.client, f.sess)
	require.NoError(t, err)
	assert.Equal(t, core.AlertExceeded, alerts[0].Level)
	assert.Len(t, rec.Sent(), 2)

	f.backend.Lock()
	f.backend.Budgets = nil
	f.backend.Unlock()
	_, err = svc.Refresh(ctx, f.client, f.sess)
	require.NoError(t, err)
	hist, err := svc.History(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, hist, "alerts of removed budgets are pruned")
}
