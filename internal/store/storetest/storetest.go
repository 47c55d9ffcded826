// Package storetest is the behaviour suite every store.Store implementation
// must pass.
package storetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"budgettracker/internal/core"
	"budgettracker/internal/store"
)

// Suite runs against a fresh store per test.
type Suite struct {
	suite.Suite
	// NewStore returns an empty store.
	NewStore func() store.Store

	store store.Store
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = s.NewStore()
}

func (s *Suite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *Suite) TestSessionLifecycle() {
	sess := core.Session{
		ID:        "0b7c9a7e-3c1e-4d7e-9a43-6d1f0f7a2b11",
		Token:     "a.b.c",
		UserID:    42,
		Name:      "Ann",
		Email:     "ann@example.com",
		Role:      core.RoleAdmin,
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(time.Hour),
	}
	s.Require().NoError(s.store.SaveSession(s.ctx, sess))

	got, err := s.store.GetSession(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.Token, got.Token)
	s.Equal(sess.UserID, got.UserID)
	s.Equal(core.RoleAdmin, got.Role)
	s.True(sess.ExpiresAt.Equal(got.ExpiresAt))

	sess.Name = "Ann B"
	s.Require().NoError(s.store.SaveSession(s.ctx, sess))
	got, err = s.store.GetSession(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal("Ann B", got.Name)

	s.Require().NoError(s.store.DeleteSession(s.ctx, sess.ID))
	_, err = s.store.GetSession(s.ctx, sess.ID)
	s.ErrorIs(err, store.ErrNotFound)

	s.NoError(s.store.DeleteSession(s.ctx, "missing"))
}

func (s *Suite) TestDeleteExpiredSessions() {
	live := core.Session{ID: "live", Token: "a.b.c", UserID: 1, Role: core.RoleUser, CreatedAt: s.now, ExpiresAt: s.now.Add(time.Minute)}
	dead := core.Session{ID: "dead", Token: "a.b.c", UserID: 2, Role: core.RoleUser, CreatedAt: s.now, ExpiresAt: s.now.Add(-time.Minute)}
	s.Require().NoError(s.store.SaveSession(s.ctx, live))
	s.Require().NoError(s.store.SaveSession(s.ctx, dead))

	n, err := s.store.DeleteExpiredSessions(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.GetSession(s.ctx, "live")
	s.NoError(err)
	_, err = s.store.GetSession(s.ctx, "dead")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *Suite) TestExportLog() {
	for i, f := range []core.ExportFormat{core.FormatCSV, core.FormatPDF, core.FormatSheets} {
		rec, err := s.store.RecordExport(s.ctx, core.ExportRecord{
			UserID:    7,
			Format:    f,
			Rows:      10 + i,
			CreatedAt: s.now.Add(time.Duration(i) * time.Minute),
		})
		s.Require().NoError(err)
		s.NotZero(rec.ID)
	}
	_, err := s.store.RecordExport(s.ctx, core.ExportRecord{UserID: 8, Format: core.FormatCSV, CreatedAt: s.now})
	s.Require().NoError(err)

	got, err := s.store.ListExports(s.ctx, 7, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(core.FormatSheets, got[0].Format)
	s.Equal(12, got[0].Rows)
	s.Equal(core.FormatPDF, got[1].Format)

	got, err = s.store.ListExports(s.ctx, 99, 10)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *Suite) TestAlertUpsertReportsLevelChanges() {
	warn := core.BudgetAlert{BudgetID: 1, Category: "Food", Level: core.AlertWarning, Spent: core.Cents(7500), Limit: core.Cents(10000), Percent: 75}

	changed, err := s.store.UpsertAlert(s.ctx, 5, warn, s.now)
	s.Require().NoError(err)
	s.True(changed, "first alert is a change")

	warn.Spent = core.Cents(8000)
	changed, err = s.store.UpsertAlert(s.ctx, 5, warn, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.False(changed, "same level is not a change")

	exceeded := warn
	exceeded.Level = core.AlertExceeded
	exceeded.Spent = core.Cents(12000)
	changed, err = s.store.UpsertAlert(s.ctx, 5, exceeded, s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.True(changed)

	other := core.BudgetAlert{BudgetID: 2, Category: "Car", Level: core.AlertWarning, Spent: core.Cents(70), Limit: core.Cents(100), Percent: 70}
	_, err = s.store.UpsertAlert(s.ctx, 5, other, s.now)
	s.Require().NoError(err)

	list, err := s.store.ListAlerts(s.ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(int64(1), list[0].Alert.BudgetID)
	s.Equal(core.AlertExceeded, list[0].Alert.Level)
	s.Equal(int64(12000), list[0].Alert.Spent.Cents)
	s.Equal("Food", list[0].Alert.Category)

	s.Require().NoError(s.store.PruneAlerts(s.ctx, 5, []int64{2}))
	list, err = s.store.ListAlerts(s.ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(int64(2), list[0].Alert.BudgetID)

	s.Require().NoError(s.store.PruneAlerts(s.ctx, 5, nil))
	list, err = s.store.ListAlerts(s.ctx, 5)
	s.Require().NoError(err)
	s.Empty(list)
}
