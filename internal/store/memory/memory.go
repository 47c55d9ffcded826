package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/store"
)

type alertKey struct {
	userID   int64
	budgetID int64
}

// Store keeps everything in process memory. Data is lost on restart.
type Store struct {
	mu       sync.Mutex
	sessions map[string]core.Session
	exports  []core.ExportRecord
	alerts   map[alertKey]core.StoredAlert
	nextID   int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		sessions: make(map[string]core.Session),
		alerts:   make(map[alertKey]core.StoredAlert),
	}
}

func (s *Store) SaveSession(_ context.Context, sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return core.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) RecordExport(_ context.Context, rec core.ExportRecord) (core.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	s.exports = append(s.exports, rec)
	return rec, nil
}

func (s *Store) ListExports(_ context.Context, userID int64, limit int) ([]core.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ExportRecord
	for i := len(s.exports) - 1; i >= 0; i-- {
		if s.exports[i].UserID != userID {
			continue
		}
		out = append(out, s.exports[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) UpsertAlert(_ context.Context, userID int64, a core.BudgetAlert, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := alertKey{userID, a.BudgetID}
	prev, ok := s.alerts[key]
	s.alerts[key] = core.StoredAlert{UserID: userID, Alert: a, UpdatedAt: now}
	return !ok || prev.Alert.Level != a.Level, nil
}

func (s *Store) PruneAlerts(_ context.Context, userID int64, keep []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.alerts {
		if key.userID == userID && !slices.Contains(keep, key.budgetID) {
			delete(s.alerts, key)
		}
	}
	return nil
}

func (s *Store) ListAlerts(_ context.Context, userID int64) ([]core.StoredAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.StoredAlert
	for key, a := range s.alerts {
		if key.userID == userID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b core.StoredAlert) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Alert.BudgetID, b.Alert.BudgetID)
	})
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }
