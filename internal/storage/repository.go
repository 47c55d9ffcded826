// Package storage is the SQLite implementation of store.Store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps SQLite free of "database is locked" under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token, user_id, name, email, role, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			expires_at = excluded.expires_at`,
		s.ID, s.Token, s.UserID, s.Name, s.Email, string(s.Role), toMillis(s.CreatedAt), toMillis(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (core.Session, error) {
	var (
		s                  core.Session
		role               string
		created, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, token, user_id, name, email, role, created_at, expires_at
		FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.Token, &s.UserID, &s.Name, &s.Email, &role, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, store.ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	s.Role = core.ParseRole(role)
	s.CreatedAt = fromMillis(created)
	s.ExpiresAt = fromMillis(expiresAt)
	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) RecordExport(ctx context.Context, rec core.ExportRecord) (core.ExportRecord, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO exports (user_id, format, row_count, created_at) VALUES (?, ?, ?, ?)`,
		rec.UserID, string(rec.Format), rec.Rows, toMillis(rec.CreatedAt))
	if err != nil {
		return rec, fmt.Errorf("record export: %w", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return rec, fmt.Errorf("record export: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListExports(ctx context.Context, userID int64, limit int) ([]core.ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, format, row_count, created_at FROM exports
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []core.ExportRecord
	for rows.Next() {
		var (
			rec     core.ExportRecord
			format  string
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &format, &rec.Rows, &created); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		rec.Format = core.ExportFormat(format)
		rec.CreatedAt = fromMillis(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertAlert(ctx context.Context, userID int64, a core.BudgetAlert, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("upsert alert: %w", err)
	}
	defer tx.Rollback()

	var prev string
	err = tx.QueryRowContext(ctx,
		`SELECT level FROM budget_alerts WHERE user_id = ? AND budget_id = ?`, userID, a.BudgetID).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("read alert: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budget_alerts (user_id, budget_id, category, level, spent_cents, limit_cents, percent, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, budget_id) DO UPDATE SET
			category = excluded.category,
			level = excluded.level,
			spent_cents = excluded.spent_cents,
			limit_cents = excluded.limit_cents,
			percent = excluded.percent,
			updated_at = excluded.updated_at`,
		userID, a.BudgetID, a.Category, string(a.Level), a.Spent.Cents, a.Limit.Cents, a.Percent, toMillis(now))
	if err != nil {
		return false, fmt.Errorf("write alert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit alert: %w", err)
	}
	return prev != string(a.Level), nil
}

func (r *SQLiteRepository) PruneAlerts(ctx context.Context, userID int64, keep []int64) error {
	query := `DELETE FROM budget_alerts WHERE user_id = ?`
	args := []any{userID}
	if len(keep) > 0 {
		query += ` AND budget_id NOT IN (?` + strings.Repeat(", ?", len(keep)-1) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune alerts: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAlerts(ctx context.Context, userID int64) ([]core.StoredAlert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT budget_id, category, level, spent_cents, limit_cents, percent, updated_at
		FROM budget_alerts WHERE user_id = ?
		ORDER BY updated_at DESC, budget_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []core.StoredAlert
	for rows.Next() {
		var (
			sa      = core.StoredAlert{UserID: userID}
			level   string
			updated int64
		)
		if err := rows.Scan(&sa.Alert.BudgetID, &sa.Alert.Category, &level,
			&sa.Alert.Spent.Cents, &sa.Alert.Limit.Cents, &sa.Alert.Percent, &updated); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		sa.Alert.Level = core.AlertLevel(level)
		sa.UpdatedAt = fromMillis(updated)
		out = append(out, sa)
	}
	return out, rows.Err()
}
