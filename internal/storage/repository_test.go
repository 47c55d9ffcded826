package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"budgettracker/internal/store"
	"budgettracker/internal/store/storetest"
)

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, &storetest.Suite{
		NewStore: func() store.Store {
			repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "bt.db"))
			require.NoError(t, err)
			return repo
		},
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bt.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	require.NoError(t, RunMigrations(path))
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}
