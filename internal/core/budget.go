package core

import (
	"strings"
)

// BudgetStatus drives the progress bar colour.
type BudgetStatus string

const (
	StatusUnused   BudgetStatus = "unused"
	StatusPartial  BudgetStatus = "partial"
	StatusExceeded BudgetStatus = "exceeded"
)

// AlertLevel is the severity of a budget alert.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertExceeded AlertLevel = "exceeded"

	warningPercent = 70.0
)

// BudgetProgress is a budget with its derived spending.
type BudgetProgress struct {
	Budget    Budget
	Spent     Money
	Remaining Money // negative once exceeded
	Percent   float64
	Status    BudgetStatus
}

// BarPercent caps Percent at 100 for rendering.
func (p BudgetProgress) BarPercent() float64 {
	return min(p.Percent, 100)
}

// BudgetAlert is raised for budgets at or above 70% of their amount.
type BudgetAlert struct {
	BudgetID int64
	Category string
	Level    AlertLevel
	Spent    Money
	Limit    Money
	Percent  float64
}

// Message renders the notification text.
func (a BudgetAlert) Message(symbol string) string {
	if a.Level == AlertExceeded {
		return "Budget exceeded for " + a.Category + ": over by " + a.Spent.Sub(a.Limit).Format(symbol)
	}
	return "Budget for " + a.Category + " is reaching its limit: " + a.Limit.Sub(a.Spent).Format(symbol) + " left"
}

// matchesBudget reports whether t falls in b's category and date range.
func matchesBudget(b Budget, t Transaction) bool {
	return strings.EqualFold(strings.TrimSpace(t.Category), strings.TrimSpace(b.Category)) &&
		t.Date.Between(b.StartDate, b.EndDate)
}

// BudgetSpent sums expenses in the budget's category within its dates.
func BudgetSpent(b Budget, txs []Transaction) Money {
	var spent Money
	for _, t := range txs {
		if t.IsExpense() && matchesBudget(b, t) {
			spent = spent.Add(t.Amount)
		}
	}
	return spent
}

// BudgetProgressFor derives spending and status for b.
func BudgetProgressFor(b Budget, txs []Transaction) BudgetProgress {
	spent := BudgetSpent(b, txs)
	p := BudgetProgress{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
	}
	switch {
	case b.Amount.Cents > 0:
		p.Percent = float64(spent.Cents) * 100 / float64(b.Amount.Cents)
	case spent.Cents > 0:
		p.Percent = 100
	}
	switch {
	case spent.Cents == 0:
		p.Status = StatusUnused
	case p.Percent < 100:
		p.Status = StatusPartial
	default:
		p.Status = StatusExceeded
	}
	return p
}

// BudgetProgressAll maps BudgetProgressFor over budgets.
func BudgetProgressAll(budgets []Budget, txs []Transaction) []BudgetProgress {
	out := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, BudgetProgressFor(b, txs))
	}
	return out
}

// BudgetTransactions lists every transaction counted against b, newest first.
func BudgetTransactions(b Budget, txs []Transaction) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if matchesBudget(b, t) {
			out = append(out, t)
		}
	}
	SortNewestFirst(out)
	return out
}

// BudgetAlerts returns a warning for budgets in [70%, 100%) and an
// exceeded alert from 100% on.
func BudgetAlerts(budgets []Budget, txs []Transaction) []BudgetAlert {
	var out []BudgetAlert
	for _, p := range BudgetProgressAll(budgets, txs) {
		if p.Spent.Cents == 0 {
			continue
		}
		var level AlertLevel
		switch {
		case p.Percent >= 100:
			level = AlertExceeded
		case p.Percent >= warningPercent:
			level = AlertWarning
		default:
			continue
		}
		out = append(out, BudgetAlert{
			BudgetID: p.Budget.ID,
			Category: p.Budget.Category,
			Level:    level,
			Spent:    p.Spent,
			Limit:    p.Budget.Amount,
			Percent:  p.Percent,
		})
	}
	return out
}

// FilterBudgetsByCategory keeps budgets of the given category; empty or
// "all" keeps everything.
func FilterBudgetsByCategory(budgets []Budget, category string) []Budget {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return budgets
	}
	var out []Budget
	for _, b := range budgets {
		if strings.EqualFold(b.Category, category) {
			out = append(out, b)
		}
	}
	return out
}
