package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Cached memoizes resolved names (cost is one per entry) and collapses concurrent lookups of the
// same id into one call. Failures are not cached.
type Cached struct {
	next  core.IdentityResolver
	ttl   time.Duration
	cache *ristretto.Cache[string, string]
	group singleflight.Group
}

func NewCached(next core.IdentityResolver, ttl time.Duration, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("identity cache: %w", err)
	}
	return &Cached{next: next, ttl: ttl, cache: cache}, nil
}

func (c *Cached) DisplayName(ctx context.Context, id domain.UserID) (string, error) {
	key := string(id)
	if name, ok := c.cache.Get(key); ok {
		return name, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		name, err := c.next.DisplayName(ctx, id)
		if err != nil {
			return "", err
		}
		if c.ttl > 0 {
			c.cache.SetWithTTL(key, name, 1, c.ttl)
		} else {
			c.cache.Set(key, name, 1)
		}
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Forget drops a cached name, used when a fresher one is learned.
func (c *Cached) Forget(id domain.UserID) {
	c.cache.Del(string(id))
}

// Wait blocks until pending cache writes are visible.
func (c *Cached) Wait() {
	c.cache.Wait()
}

func (c *Cached) Close() {
	c.cache.Close()
}
