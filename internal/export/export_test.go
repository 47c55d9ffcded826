package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/core"
	"budgettracker/internal/store/memory"
)

func sampleTxs() []core.Transaction {
	return []core.Transaction{
		{ID: 2, Type: core.Expense, Amount: core.Cents(2550), Category: "Food", Description: "Groceries, weekly", Date: core.NewDate(2025, 3, 2)},
		{ID: 1, Type: core.Income, Amount: core.Cents(150000), Category: "", Description: "Salary", Date: core.NewDate(2025, 3, 1)},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, sampleTxs())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"2025-03-02", "expense", "Food", "Groceries, weekly", "25.50"}, records[1])
	assert.Equal(t, []string{"2025-03-01", "income", "Other", "Salary", "1500.00"}, records[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "Date,Type,Category,Description,Amount\n", buf.String())
}

func TestWritePDF(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 80; i++ {
		txs = append(txs, core.Transaction{ID: int64(i), Type: core.Expense, Amount: core.Cents(100), Category: "Food", Date: core.NewDate(2025, 1, 1)})
	}
	var buf bytes.Buffer
	err := WritePDF(&buf, Statement{UserName: "Ann", From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 1, 31), Transactions: txs, Symbol: "€"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, core.FormatPDF, f)

	_, err = ParseFormat("xls")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFilenameAndContentType(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "transactions-2025-03-01.csv", Filename(core.FormatCSV, at))
	assert.Equal(t, "application/pdf", ContentType(core.FormatPDF))
}

type fakeAppender struct {
	user string
	rows int
}

func (f *fakeAppender) Append(_ context.Context, user string, txs []core.Transaction) (int, error) {
	f.user, f.rows = user, len(txs)
	return len(txs), nil
}

type fakeRecorder struct {
	calls int
	err   error
}

func (f *fakeRecorder) RecordExport(context.Context, int64, core.ExportFormat, time.Time) error {
	f.calls++
	return f.err
}

func TestServiceExportRecordsHistory(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil, "$", nil)
	rec := &fakeRecorder{err: errors.New("backend down")}

	var buf bytes.Buffer
	out, err := svc.Export(context.Background(), &buf, rec, Request{Format: core.FormatCSV, UserID: 4, Transactions: sampleTxs()})
	require.NoError(t, err, "a failed backend record does not fail the export")
	assert.Equal(t, 2, out.Rows)
	assert.Equal(t, 1, rec.calls)

	hist, err := svc.History(context.Background(), 4, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, core.FormatCSV, hist[0].Format)
}

func TestServiceSheets(t *testing.T) {
	svc := NewService(memory.New(), nil, "$", nil)
	assert.False(t, svc.SheetsEnabled())
	_, err := svc.Export(context.Background(), nil, nil, Request{Format: core.FormatSheets, Transactions: sampleTxs()})
	assert.ErrorIs(t, err, ErrSheetsDisabled)

	app := &fakeAppender{}
	svc = NewService(memory.New(), app, "$", nil)
	out, err := svc.Export(context.Background(), nil, nil, Request{Format: core.FormatSheets, UserName: "Ann", Transactions: sampleTxs()})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows)
	assert.Equal(t, "Ann", app.user)

	_, err = svc.Export(context.Background(), nil, nil, Request{Format: core.FormatSheets})
	assert.ErrorIs(t, err, ErrNoTransactions)
}

func TestYearPrefixedName(t *testing.T) {
	assert.Equal(t, "2025 Transactions", yearPrefixedName("Transactions", 2025))
	assert.Equal(t, "2024 Transactions", yearPrefixedName("2024 Transactions", 2025))
	assert.Equal(t, "", yearPrefixedName("  ", 2025))
}

func TestSheetRow(t *testing.T) {
	row := sheetRow("Ann", sampleTxs()[0])
	assert.Equal(t, []any{"Ann", "2025-03-02", "expense", "Food", "Groceries, weekly", 25.5}, row)
}
