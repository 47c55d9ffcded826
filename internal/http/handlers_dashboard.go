package http

import (
	"net/http"

	"budgettracker/internal/core"
	"budgettracker/internal/services"
)

type dashboardPage struct {
	services.Dashboard
	Periods []core.Period
	Bars    []trendBar
}

// trendBar is one month of the trend chart, scaled to the largest value.
type trendBar struct {
	Label           string
	Income          core.Money
	Expenses        core.Money
	IncomePercent   float64
	ExpensesPercent float64
}

func trendBars(buckets []core.MonthBucket) []trendBar {
	var peak int64
	for _, b := range buckets {
		peak = max(peak, b.Income.Cents, b.Expenses.Cents)
	}
	bars := make([]trendBar, 0, len(buckets))
	for _, b := range buckets {
		bar := trendBar{Label: b.Label(), Income: b.Income, Expenses: b.Expenses}
		if peak > 0 {
			bar.IncomePercent = float64(b.Income.Cents) / float64(peak) * 100
			bar.ExpensesPercent = float64(b.Expenses.Cents) / float64(peak) * 100
		}
		bars = append(bars, bar)
	}
	return bars
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.IsAdmin() {
		s.redirect(w, r, core.RoleAdmin.Home())
		return
	}

	period := core.ParsePeriod(r.URL.Query().Get("period"))
	d, err := s.dashboard.Load(r.Context(), s.clientFor(r), period)
	v := view{Title: "Dashboard"}
	if err != nil {
		if !s.recoverable(w, r, err) {
			return
		}
		d = services.Dashboard{Period: period}
		v.Warnings = []string{"Your dashboard could not be loaded. Please try again later."}
	}
	if v.Warnings == nil {
		v.Warnings = failures(d.Failures)
	}
	v.Page = dashboardPage{Dashboard: d, Periods: core.Periods, Bars: trendBars(d.Trend)}
	s.render(w, r, http.StatusOK, "dashboard", v)
}
