package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
)

// Dashboard is everything the user home screen shows.
type Dashboard struct {
	Period   core.Period
	From, To core.Date

	// Wallet covers every transaction; PeriodSummary only the period.
	Wallet        core.Summary
	PeriodSummary core.Summary

	ExpenseCategories []core.CategoryAmount
	IncomeCategories  []core.CategoryAmount
	Trend             []core.MonthBucket
	Budgets           []core.BudgetProgress
	Alerts            []core.BudgetAlert
	Savings           core.SavingsStats
	Forecast          core.Money
	Recent            []core.Transaction

	// Failures names the collections that could not be loaded.
	Failures []string
}

const recentCount = 5

type DashboardService struct {
	logger *log.Logger
	now    func() time.Time
}

func NewDashboardService(logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{logger: logger.WithComponent(log.ComponentApp), now: time.Now}
}

// Load fetches transactions, budgets and savings goals concurrently. A
// failed fetch leaves its collection empty and is listed in Failures; an
// expired token is returned as api.ErrUnauthorized.
func (s *DashboardService) Load(ctx context.Context, c *api.Client, period core.Period) (Dashboard, error) {
	var (
		txs     []core.Transaction
		budgets []core.Budget
		goals   []core.SavingsGoal
	)
	failures, err := fanOut(ctx, s.logger,
		fetch("transactions", func(ctx context.Context) (err error) { txs, err = c.Transactions(ctx); return }),
		fetch("budgets", func(ctx context.Context) (err error) { budgets, err = c.Budgets(ctx); return }),
		fetch("savings", func(ctx context.Context) (err error) { goals, err = c.SavingsGoals(ctx); return }),
	)
	if err != nil {
		return Dashboard{}, err
	}

	from, to := core.PeriodRange(period, s.now())
	inPeriod := core.FilterTransactions(txs, core.TxFilter{From: from, To: to})

	d := Dashboard{
		Period:            period,
		From:              from,
		To:                to,
		Wallet:            core.Summarize(txs),
		PeriodSummary:     core.Summarize(inPeriod),
		ExpenseCategories: core.CategoryTotals(inPeriod, core.Expense),
		IncomeCategories:  core.CategoryTotals(inPeriod, core.Income),
		Trend:             core.MonthlyTrend(txs),
		Budgets:           core.BudgetProgressAll(budgets, txs),
		Alerts:            core.BudgetAlerts(budgets, txs),
		Savings:           core.SavingsTotals(goals),
		Forecast:          core.ForecastNextMonth(txs),
		Failures:          failures,
	}
	recent := core.FilterTransactions(txs, core.TxFilter{})
	if len(recent) > recentCount {
		recent = recent[:recentCount]
	}
	d.Recent = recent
	return d, nil
}

type fetcher struct {
	name string
	run  func(ctx context.Context) error
}

func fetch(name string, run func(ctx context.Context) error) fetcher {
	return fetcher{name: name, run: run}
}

// fanOut runs every fetcher concurrently and waits for all of them.
// Failed fetchers are reported by name. An unauthorized or forbidden
// reply from any of them is returned instead of partial results.
func fanOut(ctx context.Context, logger *log.Logger, fetchers ...fetcher) ([]string, error) {
	errs := make([]error, len(fetchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fetchers {
		g.Go(func() error {
			errs[i] = f.run(gctx)
			if errors.Is(errs[i], api.ErrUnauthorized) || errors.Is(errs[i], api.ErrForbidden) {
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failures []string
	for i, err := range errs {
		if err == nil {
			continue
		}
		failures = append(failures, fetchers[i].name)
		logger.WarnContext(ctx, "Partial load failure",
			log.FieldOperation, log.OpFanOut,
			log.FieldEndpoint, fetchers[i].name,
			log.FieldError, err.Error())
	}
	return failures, nil
}
