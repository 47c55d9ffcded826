package core

import "time"

// Session binds a browser cookie to a backend bearer token and the
// identity returned at login.
type Session struct {
	ID        string
	Token     string
	UserID    int64
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) IsAdmin() bool { return s.Role.IsAdmin() }

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ExportFormat is a transaction export target.
type ExportFormat string

const (
	FormatCSV    ExportFormat = "csv"
	FormatPDF    ExportFormat = "pdf"
	FormatSheets ExportFormat = "sheets"
)

// ExportRecord is one entry of the export history.
type ExportRecord struct {
	ID        int64
	UserID    int64
	Format    ExportFormat
	Rows      int
	CreatedAt time.Time
}

// StoredAlert is a budget alert persisted for a user.
type StoredAlert struct {
	UserID    int64
	Alert     BudgetAlert
	UpdatedAt time.Time
}
