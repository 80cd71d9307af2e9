package cache

import (
	"context"
	"time"

	"github.com/pantrykit/pantry-api/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
)

const accountCacheName = "accounts"

// AccountLookup reports whether an account still exists
type AccountLookup func(ctx context.Context, userID string) (bool, error)

// AccountCache remembers account existence so the session gate rarely touches the database
type AccountCache struct {
	cache  *gocache.Cache
	lookup AccountLookup
	ttl    time.Duration
}

// NewAccountCache creates a cache whose entries live for ttl
func NewAccountCache(lookup AccountLookup, ttl time.Duration) *AccountCache {
	return &AccountCache{
		cache:  gocache.New(ttl, 2*ttl),
		lookup: lookup,
		ttl:    ttl,
	}
}

// Exists returns the cached answer or asks the lookup. Lookup errors are not cached.
func (ac *AccountCache) Exists(ctx context.Context, userID string) (bool, error) {
	if data, found := ac.cache.Get(userID); found {
		if exists, ok := data.(bool); ok {
			metrics.CacheHits.WithLabelValues(accountCacheName).Inc()
			return exists, nil
		}
		ac.cache.Delete(userID)
	}

	metrics.CacheMisses.WithLabelValues(accountCacheName).Inc()

	exists, err := ac.lookup(ctx, userID)
	if err != nil {
		return false, err
	}

	ac.cache.Set(userID, exists, ac.ttl)
	return exists, nil
}

// MarkDeleted records a removed account without waiting for the TTL
func (ac *AccountCache) MarkDeleted(userID string) {
	ac.cache.Set(userID, false, ac.ttl)
}
