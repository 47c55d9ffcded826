// Package export writes a user's transactions as CSV, a PDF statement or
// rows of a Google spreadsheet, and keeps the export history.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/log"
	"budgettracker/internal/store"
)

var (
	ErrUnknownFormat  = errors.New("unknown export format")
	ErrSheetsDisabled = errors.New("google sheets export is not configured")
	ErrNoTransactions = errors.New("nothing to export")
)

// Appender is the spreadsheet side of an export.
type Appender interface {
	Append(ctx context.Context, user string, txs []core.Transaction) (int, error)
}

// Recorder reports a finished export to the backend.
type Recorder interface {
	RecordExport(ctx context.Context, userID int64, format core.ExportFormat, at time.Time) error
}

func ParseFormat(s string) (core.ExportFormat, error) {
	switch f := core.ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case core.FormatCSV, core.FormatPDF, core.FormatSheets:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the response media type for a downloadable format.
func ContentType(f core.ExportFormat) string {
	switch f {
	case core.FormatPDF:
		return "application/pdf"
	case core.FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Filename is the suggested download name, e.g. transactions-2025-03-01.csv.
func Filename(f core.ExportFormat, at time.Time) string {
	return fmt.Sprintf("transactions-%s.%s", at.Format("2006-01-02"), f)
}

// Request describes one export.
type Request struct {
	Format       core.ExportFormat
	UserID       int64
	UserName     string
	From, To     core.Date
	Transactions []core.Transaction
}

type Service struct {
	history store.ExportLog
	sheets  Appender
	symbol  string
	now     func() time.Time
	logger  *log.Logger
}

// NewService builds the export service. sheets may be nil when the
// spreadsheet export is not configured.
func NewService(history store.ExportLog, sheets Appender, symbol string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		history: history,
		sheets:  sheets,
		symbol:  symbol,
		now:     time.Now,
		logger:  logger.WithComponent(log.ComponentExport),
	}
}

func (s *Service) SheetsEnabled() bool { return s.sheets != nil }

// Export writes req to w (csv and pdf) or to the spreadsheet, then
// records it locally and with rec. Recording failures are logged only.
func (s *Service) Export(ctx context.Context, w io.Writer, rec Recorder, req Request) (core.ExportRecord, error) {
	now := s.now()
	var (
		rows int
		err  error
	)
	switch req.Format {
	case core.FormatCSV:
		rows, err = WriteCSV(w, req.Transactions)
	case core.FormatPDF:
		err = WritePDF(w, Statement{
			UserName:     req.UserName,
			From:         req.From,
			To:           req.To,
			Transactions: req.Transactions,
			Symbol:       s.symbol,
			GeneratedAt:  now,
		})
		rows = len(req.Transactions)
	case core.FormatSheets:
		if s.sheets == nil {
			return core.ExportRecord{}, ErrSheetsDisabled
		}
		if len(req.Transactions) == 0 {
			return core.ExportRecord{}, ErrNoTransactions
		}
		rows, err = s.sheets.Append(ctx, req.UserName, req.Transactions)
	default:
		return core.ExportRecord{}, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}
	if err != nil {
		return core.ExportRecord{}, fmt.Errorf("export %s: %w", req.Format, err)
	}

	record := core.ExportRecord{UserID: req.UserID, Format: req.Format, Rows: rows, CreatedAt: now}
	if s.history != nil {
		saved, err := s.history.RecordExport(ctx, record)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to store export record",
				log.FieldError, err.Error(), log.FieldUserID, req.UserID)
		} else {
			record = saved
		}
	}
	if rec != nil {
		if err := rec.RecordExport(ctx, req.UserID, req.Format, now); err != nil {
			s.logger.WarnContext(ctx, "Failed to report export to backend",
				log.FieldError, err.Error(), log.FieldUserID, req.UserID)
		}
	}

	s.logger.InfoContext(ctx, "Export completed",
		log.FieldOperation, log.OpExport,
		log.FieldFormat, string(req.Format),
		log.FieldRows, rows,
		log.FieldUserID, req.UserID)
	return record, nil
}

// History returns the user's most recent exports.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]core.ExportRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListExports(ctx, userID, limit)
}
