package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgettracker/internal/core"
	"budgettracker/internal/log"
)

// SheetsConfig locates the target spreadsheet and the service account.
type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// Sheets appends transactions to a Google spreadsheet tab named
// "<year> <SheetName>".
type Sheets struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	now           func() time.Time
	logger        *log.Logger
}

func NewSheets(ctx context.Context, cfg SheetsConfig, logger *log.Logger, opts ...goption.ClientOption) (*Sheets, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentExport)

	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	name := cfg.SheetName
	if name == "" {
		name = "Transactions"
	}
	logger.InfoContext(ctx, "Google Sheets export ready", "sheet", name)
	return &Sheets{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     name,
		now:           time.Now,
		logger:        logger,
	}, nil
}

// Append writes one row per transaction after the last used row and
// returns how many rows were written. The user's name leads each row so
// several users can share one sheet.
func (s *Sheets) Append(ctx context.Context, user string, txs []core.Transaction) (int, error) {
	if s.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	if len(txs) == 0 {
		return 0, nil
	}
	values := make([][]any, 0, len(txs))
	for _, t := range txs {
		values = append(values, sheetRow(user, t))
	}

	rng := fmt.Sprintf("%s!A:F", yearPrefixedName(s.sheetBase, s.now().Year()))
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append to %s: %w", rng, err)
	}
	s.logger.InfoContext(ctx, "Transactions appended to sheet", log.FieldRows, len(values))
	return len(values), nil
}

func sheetRow(user string, t core.Transaction) []any {
	cells := Row(t)
	return []any{user, cells[0], cells[1], cells[2], cells[3], t.Amount.Float()}
}

// yearPrefixedName returns "<year> <base>" unless base already starts
// with a year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
