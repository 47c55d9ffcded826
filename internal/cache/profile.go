package cache

import (
	"context"

	"budgettracker/internal/core"
)

// ProfileFetcher loads the signed-in user's profile from the backend.
type ProfileFetcher func(ctx context.Context) (core.User, error)

// Profiles caches one profile per session id.
type Profiles struct {
	lru *LRU[core.User]
}

func NewProfiles(lru *LRU[core.User]) *Profiles {
	return &Profiles{lru: lru}
}

// Get returns the cached profile for sessionID or calls fetch and caches
// a successful result. Errors are never cached.
func (p *Profiles) Get(ctx context.Context, sessionID string, fetch ProfileFetcher) (core.User, error) {
	if u, ok := p.lru.Get(sessionID); ok {
		return u, nil
	}
	u, err := fetch(ctx)
	if err != nil {
		return core.User{}, err
	}
	p.lru.Set(sessionID, u)
	return u, nil
}

// Invalidate forgets the profile, e.g. after an update or logout.
func (p *Profiles) Invalidate(sessionID string) {
	p.lru.Delete(sessionID)
}

// Size is the number of cached profiles.
func (p *Profiles) Size() int {
	return p.lru.Size()
}
