// Package store declares the local persistence ports of the web frontend.
// The budget data itself lives in the REST backend; these stores only keep
// what the frontend owns: sessions, the export history and budget alerts.
package store

import (
	"context"
	"errors"
	"time"

	"budgettracker/internal/core"
)

var ErrNotFound = errors.New("not found")

type (
	SessionStore interface {
		SaveSession(ctx context.Context, s core.Session) error
		// GetSession returns ErrNotFound for unknown ids.
		GetSession(ctx context.Context, id string) (core.Session, error)
		DeleteSession(ctx context.Context, id string) error
		// DeleteExpiredSessions removes sessions expiring at or before now.
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
	}

	ExportLog interface {
		RecordExport(ctx context.Context, rec core.ExportRecord) (core.ExportRecord, error)
		// ListExports returns the user's exports, newest first.
		ListExports(ctx context.Context, userID int64, limit int) ([]core.ExportRecord, error)
	}

	AlertStore interface {
		// UpsertAlert stores a for the user and reports whether its level
		// differs from the one stored before (or none was stored).
		UpsertAlert(ctx context.Context, userID int64, a core.BudgetAlert, now time.Time) (changed bool, err error)
		// PruneAlerts drops the user's alerts whose budget is not in keep.
		PruneAlerts(ctx context.Context, userID int64, keep []int64) error
		// ListAlerts returns the user's alerts, most recently updated first.
		ListAlerts(ctx context.Context, userID int64) ([]core.StoredAlert, error)
	}

	// Store is everything a data backend provides.
	Store interface {
		SessionStore
		ExportLog
		AlertStore
		Ping(ctx context.Context) error
		Close() error
	}
)
