package services

import (
	"context"
	"fmt"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
)

// BudgetList is the budgets screen: every budget with its progress.
type BudgetList struct {
	Category string
	Progress []core.BudgetProgress
	Total    core.Money
	Failures []string
}

// BudgetDetail is one budget with the transactions that count against it.
type BudgetDetail struct {
	Progress     core.BudgetProgress
	Transactions []core.Transaction
	Failures     []string
}

func (s *DashboardService) loadBudgets(ctx context.Context, c *api.Client) ([]core.Budget, []core.Transaction, []string, error) {
	var (
		budgets []core.Budget
		txs     []core.Transaction
	)
	failures, err := fanOut(ctx, s.logger,
		fetch("budgets", func(ctx context.Context) (err error) { budgets, err = c.Budgets(ctx); return }),
		fetch("transactions", func(ctx context.Context) (err error) { txs, err = c.Transactions(ctx); return }),
	)
	return budgets, txs, failures, err
}

// Budgets loads the user's budgets, optionally limited to a category.
func (s *DashboardService) Budgets(ctx context.Context, c *api.Client, category string) (BudgetList, error) {
	budgets, txs, failures, err := s.loadBudgets(ctx, c)
	if err != nil {
		return BudgetList{}, err
	}
	budgets = core.FilterBudgetsByCategory(budgets, category)
	return BudgetList{
		Category: category,
		Progress: core.BudgetProgressAll(budgets, txs),
		Total:    core.BudgetTotal(budgets),
		Failures: failures,
	}, nil
}

// Budget returns the budget with the given id. The backend has no
// single-budget read, so it is looked up in the list.
func (s *DashboardService) Budget(ctx context.Context, c *api.Client, id int64) (BudgetDetail, error) {
	budgets, txs, failures, err := s.loadBudgets(ctx, c)
	if err != nil {
		return BudgetDetail{}, err
	}
	for _, b := range budgets {
		if b.ID == id {
			return BudgetDetail{
				Progress:     core.BudgetProgressFor(b, txs),
				Transactions: core.BudgetTransactions(b, txs),
				Failures:     failures,
			}, nil
		}
	}
	if len(failures) > 0 {
		return BudgetDetail{}, fmt.Errorf("budget %d: could not load %v", id, failures)
	}
	return BudgetDetail{}, fmt.Errorf("budget %d: %w", id, api.ErrNotFound)
}
