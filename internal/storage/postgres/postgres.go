// Package postgres is the pgx implementation of store.Store for
// deployments that run several frontend replicas against one database.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"budgettracker/internal/core"
	"budgettracker/internal/store"
)

//go:embed schema.sql
var schema string

type Store struct {
	Pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.Pool.Ping(ctx) }

func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}

func (s *Store) SaveSession(ctx context.Context, sess core.Session) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sessions (id, token, user_id, name, email, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			expires_at = EXCLUDED.expires_at`,
		sess.ID, sess.Token, sess.UserID, sess.Name, sess.Email, string(sess.Role), sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (core.Session, error) {
	var (
		sess core.Session
		role string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, token, user_id, name, email, role, created_at, expires_at
		FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.Name, &sess.Email, &role, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Session{}, store.ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	sess.Role = core.ParseRole(role)
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) RecordExport(ctx context.Context, rec core.ExportRecord) (core.ExportRecord, error) {
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO exports (user_id, format, row_count, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		rec.UserID, string(rec.Format), rec.Rows, rec.CreatedAt).Scan(&rec.ID)
	if err != nil {
		return rec, fmt.Errorf("record export: %w", err)
	}
	return rec, nil
}

func (s *Store) ListExports(ctx context.Context, userID int64, limit int) ([]core.ExportRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, user_id, format, row_count, created_at FROM exports
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []core.ExportRecord
	for rows.Next() {
		var (
			rec    core.ExportRecord
			format string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &format, &rec.Rows, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		rec.Format = core.ExportFormat(format)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) UpsertAlert(ctx context.Context, userID int64, a core.BudgetAlert, now time.Time) (bool, error) {
	// The CTE reads the row as it was before the upsert.
	var prev *string
	err := s.Pool.QueryRow(ctx, `
		WITH old AS (
			SELECT level FROM budget_alerts WHERE user_id = $1 AND budget_id = $2
		), up AS (
			INSERT INTO budget_alerts (user_id, budget_id, category, level, spent_cents, limit_cents, percent, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id, budget_id) DO UPDATE SET
				category = EXCLUDED.category,
				level = EXCLUDED.level,
				spent_cents = EXCLUDED.spent_cents,
				limit_cents = EXCLUDED.limit_cents,
				percent = EXCLUDED.percent,
				updated_at = EXCLUDED.updated_at
			RETURNING 1
		)
		SELECT (SELECT level FROM old) FROM up`,
		userID, a.BudgetID, a.Category, string(a.Level), a.Spent.Cents, a.Limit.Cents, a.Percent, now).Scan(&prev)
	if err != nil {
		return false, fmt.Errorf("upsert alert: %w", err)
	}
	return prev == nil || *prev != string(a.Level), nil
}

func (s *Store) PruneAlerts(ctx context.Context, userID int64, keep []int64) error {
	if keep == nil {
		keep = []int64{}
	}
	_, err := s.Pool.Exec(ctx,
		`DELETE FROM budget_alerts WHERE user_id = $1 AND NOT (budget_id = ANY($2))`, userID, keep)
	if err != nil {
		return fmt.Errorf("prune alerts: %w", err)
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, userID int64) ([]core.StoredAlert, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT budget_id, category, level, spent_cents, limit_cents, percent, updated_at
		FROM budget_alerts WHERE user_id = $1
		ORDER BY updated_at DESC, budget_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []core.StoredAlert
	for rows.Next() {
		sa := core.StoredAlert{UserID: userID}
		var level string
		if err := rows.Scan(&sa.Alert.BudgetID, &sa.Alert.Category, &level,
			&sa.Alert.Spent.Cents, &sa.Alert.Limit.Cents, &sa.Alert.Percent, &sa.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		sa.Alert.Level = core.AlertLevel(level)
		out = append(out, sa)
	}
	return out, rows.Err()
}
