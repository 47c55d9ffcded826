package core

// SavingsProgress is a goal with its derived progress.
type SavingsProgress struct {
	Goal      SavingsGoal
	Percent   float64 // capped at 100
	Remaining Money   // never negative
	Completed bool
}

// SavingsStats totals a set of goals.
type SavingsStats struct {
	Saved     Money
	Target    Money
	Completed int
	Goals     int
}

func SavingsProgressFor(g SavingsGoal) SavingsProgress {
	p := SavingsProgress{
		Goal:      g,
		Completed: g.Target.Cents > 0 && g.Current.Cents >= g.Target.Cents,
	}
	if g.Target.Cents > 0 {
		p.Percent = min(float64(g.Current.Cents)*100/float64(g.Target.Cents), 100)
	}
	if rem := g.Target.Sub(g.Current); rem.Cents > 0 {
		p.Remaining = rem
	}
	return p
}

func SavingsProgressAll(goals []SavingsGoal) []SavingsProgress {
	out := make([]SavingsProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, SavingsProgressFor(g))
	}
	return out
}

// Deposit adds amount to the goal's current amount.
func Deposit(g SavingsGoal, amount Money) (SavingsGoal, error) {
	if err := amount.Validate(); err != nil {
		return g, err
	}
	g.Current = g.Current.Add(amount)
	return g, nil
}

func SavingsTotals(goals []SavingsGoal) SavingsStats {
	var s SavingsStats
	for _, g := range goals {
		s.Saved = s.Saved.Add(g.Current)
		s.Target = s.Target.Add(g.Target)
		if SavingsProgressFor(g).Completed {
			s.Completed++
		}
		s.Goals++
	}
	return s
}

// BudgetTotal sums the amounts of all budgets.
func BudgetTotal(budgets []Budget) Money {
	var m Money
	for _, b := range budgets {
		m = m.Add(b.Amount)
	}
	return m
}
