package services

import (
	"context"
	"strings"
	"time"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
)

// AdminDashboard is the administrator overview across all users.
type AdminDashboard struct {
	UserCount         int
	ActiveUsers       int
	Totals            core.Summary
	Trend             []core.MonthBucket
	ExpenseCategories []core.CategoryAmount
	Registrations     []core.MonthCount
	BudgetTotal       core.Money
	Savings           core.SavingsStats
	Failures          []string
}

// AdminTransactions is one page of the admin transaction list.
type AdminTransactions struct {
	Users  []core.User
	UserID int64
	Page   core.Page[core.Transaction]
}

// UserName returns the display name for id, or "" when unknown.
func (a AdminTransactions) UserName(id int64) string {
	for _, u := range a.Users {
		if u.ID == id {
			return u.Name
		}
	}
	return ""
}

type AdminService struct {
	logger  *log.Logger
	perPage int
	now     func() time.Time
}

func NewAdminService(perPage int, logger *log.Logger) *AdminService {
	if logger == nil {
		logger = log.Discard()
	}
	if perPage < 1 {
		perPage = 10
	}
	return &AdminService{logger: logger.WithComponent(log.ComponentAdmin), perPage: perPage, now: time.Now}
}

// Dashboard loads users, transactions, budgets and savings goals in
// parallel. Failed collections are empty and named in Failures.
func (s *AdminService) Dashboard(ctx context.Context, c *api.Client) (AdminDashboard, error) {
	var (
		users   []core.User
		txs     []core.Transaction
		budgets []core.Budget
		goals   []core.SavingsGoal
	)
	failures, err := fanOut(ctx, s.logger,
		fetch("users", func(ctx context.Context) (err error) { users, err = c.AdminUsers(ctx); return }),
		fetch("transactions", func(ctx context.Context) (err error) { txs, err = c.AdminTransactions(ctx); return }),
		fetch("budgets", func(ctx context.Context) (err error) { budgets, err = c.AdminBudgets(ctx); return }),
		fetch("savings", func(ctx context.Context) (err error) { goals, err = c.AdminSavings(ctx); return }),
	)
	if err != nil {
		return AdminDashboard{}, err
	}
	return AdminDashboard{
		UserCount:         len(users),
		ActiveUsers:       core.ActiveUsers(txs, s.now()),
		Totals:            core.Summarize(txs),
		Trend:             core.MonthlyTrend(txs),
		ExpenseCategories: core.CategoryTotals(txs, core.Expense),
		Registrations:     core.RegistrationsByMonth(users),
		BudgetTotal:       core.BudgetTotal(budgets),
		Savings:           core.SavingsTotals(goals),
		Failures:          failures,
	}, nil
}

// Transactions returns the page-th page of all transactions, optionally
// restricted to one user. The user list feeds the filter control and
// may be empty if it failed to load.
func (s *AdminService) Transactions(ctx context.Context, c *api.Client, userID int64, page int) (AdminTransactions, []string, error) {
	var (
		users []core.User
		txs   []core.Transaction
	)
	failures, err := fanOut(ctx, s.logger,
		fetch("users", func(ctx context.Context) (err error) { users, err = c.AdminUsers(ctx); return }),
		fetch("transactions", func(ctx context.Context) (err error) { txs, err = c.AdminTransactions(ctx); return }),
	)
	if err != nil {
		return AdminTransactions{}, nil, err
	}
	filtered := core.FilterTransactions(txs, core.TxFilter{UserID: userID})
	return AdminTransactions{
		Users:  users,
		UserID: userID,
		Page:   core.Paginate(filtered, page, s.perPage),
	}, failures, nil
}

// UpdateUser validates and applies an administrator edit.
func (s *AdminService) UpdateUser(ctx context.Context, c *api.Client, id int64, u api.UserUpdate) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	if u.Name == "" {
		return core.ErrEmptyName
	}
	if !strings.Contains(u.Email, "@") {
		return core.ErrInvalidEmail
	}
	u.Role = string(core.ParseRole(u.Role))
	if err := c.AdminUpdateUser(ctx, id, u); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User updated by admin", log.FieldEntityID, id, log.FieldRole, u.Role)
	return nil
}
