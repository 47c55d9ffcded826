package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"budgettracker/internal/core"
)

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"Date", "Type", "Category", "Description", "Amount"}

// Row renders one transaction as export cells. The amount uses two
// decimals with a dot separator.
func Row(t core.Transaction) []string {
	return []string{
		t.Date.String(),
		string(t.Type),
		core.CategoryOrDefault(t.Category),
		t.Description,
		t.Amount.String(),
	}
}

// WriteCSV writes the header and one row per transaction, returning the
// number of data rows.
func WriteCSV(w io.Writer, txs []core.Transaction) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for i, t := range txs {
		if err := cw.Write(Row(t)); err != nil {
			return i, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(txs), fmt.Errorf("flush csv: %w", err)
	}
	return len(txs), nil
}
