package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(id int64, typ TxType, cents int64, category string, date Date) Transaction {
	return Transaction{ID: id, UserID: 1, Type: typ, Amount: Cents(cents), Category: category, Date: date}
}

func sampleTransactions() []Transaction {
	return []Transaction{
		tx(1, Income, 300000, "Salary", NewDate(2025, 1, 1)),
		tx(2, Expense, 4550, "Food", NewDate(2025, 1, 3)),
		tx(3, Expense, 12000, "Bill", NewDate(2025, 1, 15)),
		tx(4, Expense, 2450, "food", NewDate(2025, 2, 2)),
		tx(5, Expense, 1000, "", NewDate(2025, 2, 5)),
		tx(6, Income, 50000, "Gift", NewDate(2025, 2, 20)),
	}
}

func TestSummarizeWalletBalance(t *testing.T) {
	s := Summarize(sampleTransactions())
	assert.Equal(t, int64(350000), s.Income.Cents)
	assert.Equal(t, int64(20000), s.Expenses.Cents)
	assert.Equal(t, int64(330000), s.Balance().Cents)
	assert.Equal(t, 6, s.Count)

	assert.Zero(t, Summarize(nil).Balance().Cents)
}

func TestSummarizeIsOrderIndependent(t *testing.T) {
	txs := sampleTransactions()
	reversed := make([]Transaction, len(txs))
	for i, t := range txs {
		reversed[len(txs)-1-i] = t
	}
	assert.Equal(t, Summarize(txs), Summarize(reversed))
}

func TestCategoryTotals(t *testing.T) {
	got := CategoryTotals(sampleTransactions(), Expense)
	require.Len(t, got, 4)

	assert.Equal(t, "Bill", got[0].Name)
	assert.Equal(t, int64(12000), got[0].Amount.Cents)
	assert.InDelta(t, 60.0, got[0].Percent, 0.001)

	names := []string{got[1].Name, got[2].Name, got[3].Name}
	assert.Equal(t, []string{"Food", "food", "Other"}, names)
}

func TestMonthlyTrend(t *testing.T) {
	txs := append(sampleTransactions(), tx(7, Expense, 999, "Car", NewDate(2024, 12, 31)), tx(8, Expense, 1, "Car", Date{}))
	got := MonthlyTrend(txs)
	require.Len(t, got, 3)

	assert.Equal(t, "Dec 2024", got[0].Label())
	assert.Equal(t, int64(999), got[0].Expenses.Cents)
	assert.Equal(t, int64(300000), got[1].Income.Cents)
	assert.Equal(t, int64(16550), got[1].Expenses.Cents)
	assert.Equal(t, int64(46550), got[2].Net().Cents)
}

func TestFilterTransactions(t *testing.T) {
	txs := sampleTransactions()

	tests := []struct {
		name   string
		filter TxFilter
		want   []int64
	}{
		{"no filter newest first", TxFilter{}, []int64{6, 5, 4, 3, 2, 1}},
		{"type", TxFilter{Type: Income}, []int64{6, 1}},
		{"category is case-insensitive", TxFilter{Category: "FOOD"}, []int64{4, 2}},
		{"blank category is Other", TxFilter{Category: "other"}, []int64{5}},
		{"inclusive range", TxFilter{From: NewDate(2025, 1, 3), To: NewDate(2025, 2, 2)}, []int64{4, 3, 2}},
		{"query", TxFilter{Query: "sal"}, []int64{1}},
		{"user", TxFilter{UserID: 2}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ids []int64
			for _, tx := range FilterTransactions(txs, tc.filter) {
				ids = append(ids, tx.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestForecastNextMonth(t *testing.T) {
	assert.Zero(t, ForecastNextMonth(nil).Cents)

	txs := []Transaction{
		tx(1, Expense, 10000, "Food", NewDate(2025, 1, 5)),
		tx(2, Expense, 20000, "Food", NewDate(2025, 2, 5)),
		tx(3, Expense, 30000, "Food", NewDate(2025, 3, 5)),
		tx(4, Expense, 60000, "Food", NewDate(2025, 4, 5)),
		tx(5, Income, 99999, "Salary", NewDate(2025, 5, 5)),
	}
	// Feb, Mar, Apr
	assert.Equal(t, int64(36666), ForecastNextMonth(txs).Cents)
}

func TestActiveUsersAndRegistrations(t *testing.T) {
	now := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)
	txs := sampleTransactions()
	txs = append(txs, Transaction{ID: 9, UserID: 2, Type: Expense, Amount: Cents(1), Category: "Car", Date: NewDate(2025, 2, 1)})
	txs = append(txs, Transaction{ID: 10, UserID: 3, Type: Expense, Amount: Cents(1), Category: "Car", Date: NewDate(2025, 1, 1)})
	assert.Equal(t, 2, ActiveUsers(txs, now))

	users := []User{
		{ID: 1, CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{ID: 2, CreatedAt: time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)},
		{ID: 3, CreatedAt: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
		{ID: 4},
	}
	regs := RegistrationsByMonth(users)
	require.Len(t, regs, 2)
	assert.Equal(t, MonthCount{Year: 2024, Month: 11, Count: 1}, regs[0])
	assert.Equal(t, MonthCount{Year: 2025, Month: 1, Count: 2}, regs[1])
}
