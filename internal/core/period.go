package core

import "time"

// Period names a dashboard date range.
type Period string

const (
	LastWeek  Period = "last-week"
	ThisMonth Period = "this-month"
	LastMonth Period = "last-month"
	ThisYear  Period = "this-year"
	LastYear  Period = "last-year"
)

// Periods is the selector order.
var Periods = []Period{LastWeek, ThisMonth, LastMonth, ThisYear, LastYear}

// ParsePeriod falls back to ThisMonth for unknown values.
func ParsePeriod(s string) Period {
	for _, p := range Periods {
		if string(p) == s {
			return p
		}
	}
	return ThisMonth
}

func (p Period) Label() string {
	switch p {
	case LastWeek:
		return "Last week"
	case LastMonth:
		return "Last month"
	case ThisYear:
		return "This year"
	case LastYear:
		return "Last year"
	}
	return "This month"
}

// PeriodRange returns the inclusive [from, to] days for p relative to now.
// Last week is the Monday to Sunday before the current week.
func PeriodRange(p Period, now time.Time) (from, to Date) {
	today := DateOf(now)
	y, m := today.Year(), int(today.Month())
	switch p {
	case LastWeek:
		offset := (int(today.Weekday()) + 6) % 7 // days since Monday
		monday := today.AddDate(0, 0, -offset-7)
		return DateOf(monday), DateOf(monday.AddDate(0, 0, 6))
	case LastMonth:
		first := NewDate(y, m, 1).AddDate(0, -1, 0)
		return DateOf(first), DateOf(first.AddDate(0, 1, -1))
	case ThisYear:
		return NewDate(y, 1, 1), NewDate(y, 12, 31)
	case LastYear:
		return NewDate(y-1, 1, 1), NewDate(y-1, 12, 31)
	}
	first := NewDate(y, m, 1)
	return first, DateOf(first.AddDate(0, 1, -1))
}
