package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
)

func TestBudgetsFilterAndProgress(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.seed(now)
	svc := NewDashboardService(nil)

	list, err := svc.Budgets(context.Background(), f.client, "food")
	require.NoError(t, err)
	require.Len(t, list.Progress, 1)
	assert.Equal(t, int64(8000), list.Progress[0].Spent.Cents)
	assert.Equal(t, core.StatusPartial, list.Progress[0].Status)
	assert.Equal(t, int64(10000), list.Total.Cents)

	list, err = svc.Budgets(context.Background(), f.client, "Travel")
	require.NoError(t, err)
	assert.Empty(t, list.Progress)
}

func TestBudgetDetail(t *testing.T) {
	f := newFixture(t)
	f.seed(time.Now())
	svc := NewDashboardService(nil)

	d, err := svc.Budget(context.Background(), f.client, 10)
	require.NoError(t, err)
	assert.Equal(t, "Food", d.Progress.Budget.Category)
	require.Len(t, d.Transactions, 1)
	assert.Equal(t, int64(2), d.Transactions[0].ID)

	_, err = svc.Budget(context.Background(), f.client, 999)
	assert.ErrorIs(t, err, api.ErrNotFound)

	f.backend.Fail("/api/budget", http.StatusInternalServerError)
	_, err = svc.Budget(context.Background(), f.client, 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, api.ErrNotFound, "a failed load is not a missing budget")
}
