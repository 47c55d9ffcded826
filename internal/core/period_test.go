package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodRange(t *testing.T) {
	saturday := time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		period   Period
		now      time.Time
		from, to string
	}{
		{"last week", LastWeek, saturday, "2025-03-03", "2025-03-09"},
		{"last week from a monday", LastWeek, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "2025-03-03", "2025-03-09"},
		{"last week from a sunday", LastWeek, time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC), "2025-03-03", "2025-03-09"},
		{"this month", ThisMonth, saturday, "2025-03-01", "2025-03-31"},
		{"last month", LastMonth, saturday, "2025-02-01", "2025-02-28"},
		{"last month in january", LastMonth, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "2024-12-01", "2024-12-31"},
		{"this year", ThisYear, saturday, "2025-01-01", "2025-12-31"},
		{"last year", LastYear, saturday, "2024-01-01", "2024-12-31"},
		{"unknown", Period("fortnight"), saturday, "2025-03-01", "2025-03-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := PeriodRange(tt.period, tt.now)
			assert.Equal(t, tt.from, from.String())
			assert.Equal(t, tt.to, to.String())
		})
	}
}

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, LastYear, ParsePeriod("last-year"))
	assert.Equal(t, ThisMonth, ParsePeriod(""))
	assert.Equal(t, ThisMonth, ParsePeriod("LAST-YEAR"))
}
