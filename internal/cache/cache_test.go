package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/core"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string](10, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("a", "x")
	c.Set("b", "y")

	now = now.Add(2 * time.Minute)
	c.Set("c", "z")
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 1, c.Size())

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestProfilesCachesSuccessOnly(t *testing.T) {
	p := NewProfiles(NewLRU[core.User](10, time.Minute))
	calls := 0
	fail := true
	fetch := func(context.Context) (core.User, error) {
		calls++
		if fail {
			return core.User{}, errors.New("boom")
		}
		return core.User{ID: 7, Name: "Ann"}, nil
	}

	_, err := p.Get(context.Background(), "s", fetch)
	require.Error(t, err)

	fail = false
	u, err := p.Get(context.Background(), "s", fetch)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)

	_, err = p.Get(context.Background(), "s", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	p.Invalidate("s")
	_, _ = p.Get(context.Background(), "s", fetch)
	assert.Equal(t, 3, calls)
}

func TestJanitorStops(t *testing.T) {
	j := NewJanitor(nil)
	j.Register(NewLRU[int](1, time.Millisecond))
	j.Start(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	j.Stop()
}
