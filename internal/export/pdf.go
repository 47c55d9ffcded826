package export

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"

	"budgettracker/internal/core"
)

// Statement is the input of a PDF export.
type Statement struct {
	UserName     string
	From, To     core.Date
	Transactions []core.Transaction
	Symbol       string
	GeneratedAt  time.Time
}

func (s Statement) periodLabel() string {
	switch {
	case s.From.IsZero() && s.To.IsZero():
		return "All transactions"
	case s.From.IsZero():
		return "Until " + s.To.String()
	case s.To.IsZero():
		return "From " + s.From.String()
	}
	return s.From.String() + " to " + s.To.String()
}

const rowsPerPage = 35

// WritePDF renders a statement: summary table, expense breakdown by
// category and the transaction list.
func WritePDF(w io.Writer, st Statement) error {
	symbol := st.Symbol
	if symbol == "" {
		symbol = "$"
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	money := func(m core.Money) string { return tr(m.Format(symbol)) }

	pdf.SetTitle("Budget statement", false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Budget statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	if st.UserName != "" {
		pdf.Cell(0, 7, tr("User: "+st.UserName))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, "Period: "+st.periodLabel())
	pdf.Ln(6)
	if !st.GeneratedAt.IsZero() {
		pdf.Cell(0, 7, "Generated: "+st.GeneratedAt.Format("2006-01-02 15:04"))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	sum := core.Summarize(st.Transactions)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range [][2]string{
		{"Income", money(sum.Income)},
		{"Expenses", money(sum.Expenses)},
		{"Balance", money(sum.Balance())},
	} {
		pdf.CellFormat(60, 7, line[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, line[1], "1", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	pdf.Ln(6)

	if cats := core.CategoryTotals(st.Transactions, core.Expense); len(cats) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Expenses by category")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, c := range cats {
			pdf.CellFormat(60, 7, tr(c.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, 7, money(c.Amount), "1", 0, "R", false, 0, "")
			pdf.CellFormat(25, 7, fmt.Sprintf("%.1f%%", c.Percent), "1", 0, "R", false, 0, "")
			pdf.Ln(7)
		}
		pdf.Ln(6)
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		for i, h := range CSVHeader {
			pdf.CellFormat(colWidths[i], 7, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 10)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Transactions")
	pdf.Ln(8)
	header()
	for i, t := range st.Transactions {
		if i > 0 && i%rowsPerPage == 0 {
			pdf.AddPage()
			header()
		}
		cells := Row(t)
		cells[4] = money(t.Amount)
		for j, v := range cells {
			align := "L"
			if j == 4 {
				align = "R"
			}
			pdf.CellFormat(colWidths[j], 6, tr(truncate(v, 40)), "1", 0, align, false, 0, "")
		}
		pdf.Ln(6)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

var colWidths = []float64{25, 20, 30, 75, 30}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
