package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foodBudget(cents int64) Budget {
	return Budget{ID: 7, Category: "Food", Amount: Cents(cents), StartDate: NewDate(2025, 1, 1), EndDate: NewDate(2025, 1, 31)}
}

func TestBudgetSpent(t *testing.T) {
	txs := []Transaction{
		tx(1, Expense, 1000, "food", NewDate(2025, 1, 1)),  // start bound
		tx(2, Expense, 2000, "FOOD", NewDate(2025, 1, 31)), // end bound
		tx(3, Expense, 4000, "Food", NewDate(2025, 2, 1)),  // after range
		tx(4, Income, 8000, "Food", NewDate(2025, 1, 10)),  // income ignored
		tx(5, Expense, 16000, "Car", NewDate(2025, 1, 10)), // other category
	}
	assert.Equal(t, int64(3000), BudgetSpent(foodBudget(10000), txs).Cents)

	ids := []int64{}
	for _, tx := range BudgetTransactions(foodBudget(10000), txs) {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []int64{2, 4, 1}, ids)
}

func TestBudgetProgressStatus(t *testing.T) {
	tests := []struct {
		name    string
		spent   int64
		status  BudgetStatus
		percent float64
		bar     float64
	}{
		{"unused", 0, StatusUnused, 0, 0},
		{"partial", 2500, StatusPartial, 25, 25},
		{"just below", 9999, StatusPartial, 99.99, 99.99},
		{"exact", 10000, StatusExceeded, 100, 100},
		{"over", 15000, StatusExceeded, 150, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var txs []Transaction
			if tc.spent > 0 {
				txs = append(txs, tx(1, Expense, tc.spent, "Food", NewDate(2025, 1, 10)))
			}
			p := BudgetProgressFor(foodBudget(10000), txs)
			assert.Equal(t, tc.status, p.Status)
			assert.InDelta(t, tc.percent, p.Percent, 0.001)
			assert.InDelta(t, tc.bar, p.BarPercent(), 0.001)
			assert.Equal(t, 10000-tc.spent, p.Remaining.Cents)
		})
	}
}

func TestBudgetAlerts(t *testing.T) {
	budgets := []Budget{
		{ID: 1, Category: "Food", Amount: Cents(10000), StartDate: NewDate(2025, 1, 1), EndDate: NewDate(2025, 1, 31)},
		{ID: 2, Category: "Car", Amount: Cents(10000), StartDate: NewDate(2025, 1, 1), EndDate: NewDate(2025, 1, 31)},
		{ID: 3, Category: "Bill", Amount: Cents(10000), StartDate: NewDate(2025, 1, 1), EndDate: NewDate(2025, 1, 31)},
		{ID: 4, Category: "Home", Amount: Cents(10000), StartDate: NewDate(2025, 1, 1), EndDate: NewDate(2025, 1, 31)},
	}
	txs := []Transaction{
		tx(1, Expense, 6999, "Food", NewDate(2025, 1, 2)),
		tx(2, Expense, 7000, "Car", NewDate(2025, 1, 2)),
		tx(3, Expense, 12000, "Bill", NewDate(2025, 1, 2)),
	}
	alerts := BudgetAlerts(budgets, txs)
	require.Len(t, alerts, 2)

	assert.Equal(t, int64(2), alerts[0].BudgetID)
	assert.Equal(t, AlertWarning, alerts[0].Level)
	assert.Equal(t, "Budget for Car is reaching its limit: $30.00 left", alerts[0].Message("$"))

	assert.Equal(t, int64(3), alerts[1].BudgetID)
	assert.Equal(t, AlertExceeded, alerts[1].Level)
	assert.Equal(t, "Budget exceeded for Bill: over by $20.00", alerts[1].Message("$"))
}

func TestFilterBudgetsByCategory(t *testing.T) {
	budgets := []Budget{{ID: 1, Category: "Food"}, {ID: 2, Category: "Car"}}
	assert.Len(t, FilterBudgetsByCategory(budgets, ""), 2)
	assert.Len(t, FilterBudgetsByCategory(budgets, "All"), 2)
	got := FilterBudgetsByCategory(budgets, "food")
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestSavings(t *testing.T) {
	g := SavingsGoal{ID: 1, Name: "Bike", Target: Cents(50000), Current: Cents(20000), Deadline: NewDate(2025, 6, 1)}
	p := SavingsProgressFor(g)
	assert.InDelta(t, 40.0, p.Percent, 0.001)
	assert.Equal(t, int64(30000), p.Remaining.Cents)
	assert.False(t, p.Completed)

	g, err := Deposit(g, Cents(40000))
	require.NoError(t, err)
	p = SavingsProgressFor(g)
	assert.Equal(t, int64(60000), g.Current.Cents)
	assert.InDelta(t, 100.0, p.Percent, 0.001)
	assert.Zero(t, p.Remaining.Cents)
	assert.True(t, p.Completed)

	_, err = Deposit(g, Money{})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	stats := SavingsTotals([]SavingsGoal{g, {Target: Cents(1000), Current: Cents(10)}})
	assert.Equal(t, int64(60010), stats.Saved.Cents)
	assert.Equal(t, int64(51000), stats.Target.Cents)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 2, stats.Goals)
}
