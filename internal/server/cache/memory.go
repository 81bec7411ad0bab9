package cache

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/jellydator/ttlcache/v3"
)

// Memory is a process-local UserCache backed by ttlcache.
type Memory struct {
	cache *ttlcache.Cache[string, entry]
}

// NewMemory creates an in-memory cache whose items live for ttl. Call Stop
// to end the background expiry loop.
func NewMemory(ttl time.Duration) *Memory {
	c := ttlcache.New(
		ttlcache.WithTTL[string, entry](ttl),
		ttlcache.WithDisableTouchOnHit[string, entry](),
	)
	go c.Start()
	return &Memory{cache: c}
}

func (m *Memory) Get(_ context.Context, id string) (*models.User, bool) {
	item := m.cache.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value().user(), true
}

func (m *Memory) Set(_ context.Context, u *models.User) error {
	m.cache.Set(u.ID, toEntry(u), ttlcache.DefaultTTL)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// Len reports the number of live items.
func (m *Memory) Len() int {
	return m.cache.Len()
}

// Stop ends the expiry loop.
func (m *Memory) Stop() {
	m.cache.Stop()
}
