package core

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Summary totals a set of transactions.
type Summary struct {
	Income   Money
	Expenses Money
	Count    int
}

// Balance is the wallet balance: income minus expenses.
func (s Summary) Balance() Money {
	return s.Income.Sub(s.Expenses)
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name    string
	Amount  Money
	Percent float64 // share of the total, 0-100
}

// MonthBucket holds income and expenses for one calendar month.
type MonthBucket struct {
	Year     int
	Month    int // 1-12
	Income   Money
	Expenses Money
}

// Label renders "Jan 2025".
func (b MonthBucket) Label() string {
	return time.Date(b.Year, time.Month(b.Month), 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// Net is income minus expenses for the month.
func (b MonthBucket) Net() Money { return b.Income.Sub(b.Expenses) }

// TxFilter narrows a transaction list. Zero fields match everything.
type TxFilter struct {
	UserID   int64
	Type     TxType
	Category string
	From     Date
	To       Date
	Query    string
}

// Summarize computes income, expenses and count.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expenses = s.Expenses.Add(t.Amount)
		}
		s.Count++
	}
	return s
}

// CategoryTotals sums transactions of the given type per category, largest
// first. A blank category counts as DefaultCategory.
func CategoryTotals(txs []Transaction, typ TxType) []CategoryAmount {
	sums := make(map[string]int64)
	var total int64
	for _, t := range txs {
		if t.Type != typ {
			continue
		}
		name := CategoryOrDefault(t.Category)
		sums[name] += t.Amount.Cents
		total += t.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		ca := CategoryAmount{Name: name, Amount: Money{Cents: cents}}
		if total > 0 {
			ca.Percent = float64(cents) * 100 / float64(total)
		}
		out = append(out, ca)
	}
	slices.SortFunc(out, func(a, b CategoryAmount) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// MonthlyTrend buckets transactions per calendar month in ascending order.
// Transactions without a date are skipped.
func MonthlyTrend(txs []Transaction) []MonthBucket {
	idx := make(map[[2]int]*MonthBucket)
	for _, t := range txs {
		if t.Date.IsZero() {
			continue
		}
		key := [2]int{t.Date.Year(), int(t.Date.Month())}
		b, ok := idx[key]
		if !ok {
			b = &MonthBucket{Year: key[0], Month: key[1]}
			idx[key] = b
		}
		switch t.Type {
		case Income:
			b.Income = b.Income.Add(t.Amount)
		case Expense:
			b.Expenses = b.Expenses.Add(t.Amount)
		}
	}
	out := make([]MonthBucket, 0, len(idx))
	for _, b := range idx {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b MonthBucket) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

// FilterTransactions applies f and returns the matches newest first.
func FilterTransactions(txs []Transaction, f TxFilter) []Transaction {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.UserID != 0 && t.UserID != f.UserID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Category != "" && !strings.EqualFold(CategoryOrDefault(t.Category), f.Category) {
			continue
		}
		if (!f.From.IsZero() || !f.To.IsZero()) && !t.Date.Between(f.From, f.To) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) {
			continue
		}
		out = append(out, t)
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders by date descending, then id descending.
func SortNewestFirst(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// ForecastNextMonth is the mean of the most recent (up to three) monthly
// expense totals. Months with only income do not count.
func ForecastNextMonth(txs []Transaction) Money {
	var months []MonthBucket
	for _, b := range MonthlyTrend(txs) {
		if b.Expenses.Cents > 0 {
			months = append(months, b)
		}
	}
	if len(months) == 0 {
		return Money{}
	}
	if len(months) > 3 {
		months = months[len(months)-3:]
	}
	var sum int64
	for _, b := range months {
		sum += b.Expenses.Cents
	}
	return Money{Cents: sum / int64(len(months))}
}

// ActiveUsers counts users with at least one transaction in now's month.
func ActiveUsers(txs []Transaction, now time.Time) int {
	seen := make(map[int64]struct{})
	for _, t := range txs {
		if t.Date.Year() == now.Year() && t.Date.Month() == now.Month() {
			seen[t.UserID] = struct{}{}
		}
	}
	return len(seen)
}

// MonthCount is a count keyed by calendar month.
type MonthCount struct {
	Year  int
	Month int
	Count int
}

// RegistrationsByMonth counts signups per month, ascending. Users without a
// creation time are skipped.
func RegistrationsByMonth(users []User) []MonthCount {
	counts := make(map[[2]int]int)
	for _, u := range users {
		if u.CreatedAt.IsZero() {
			continue
		}
		counts[[2]int{u.CreatedAt.Year(), int(u.CreatedAt.Month())}]++
	}
	out := make([]MonthCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, MonthCount{Year: k[0], Month: k[1], Count: n})
	}
	slices.SortFunc(out, func(a, b MonthCount) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

// Label renders "Jan 2025".
func (m MonthCount) Label() string {
	return MonthBucket{Year: m.Year, Month: m.Month}.Label()
}
