package identity

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// CachedLookup caches found identities for a TTL and collapses concurrent
// misses for the same subject into one backing call. Misses and errors are
// never cached, so a deactivated or deleted identity is visible after at most
// one TTL.
type CachedLookup struct {
	next  Lookup
	cache *lru.LRU[string, Record]
	group singleflight.Group
}

// NewCachedLookup wraps next with an LRU of size entries.
func NewCachedLookup(next Lookup, size int, ttl time.Duration) *CachedLookup {
	if size <= 0 {
		size = 1024
	}
	return &CachedLookup{
		next:  next,
		cache: lru.NewLRU[string, Record](size, nil, ttl),
	}
}

// Find implements Lookup.
func (c *CachedLookup) Find(ctx context.Context, subjectID string) (Record, error) {
	if record, ok := c.cache.Get(subjectID); ok {
		return record, nil
	}

	value, err, _ := c.group.Do(subjectID, func() (any, error) {
		record, err := c.next.Find(ctx, subjectID)
		if err != nil {
			return Record{}, err
		}
		c.cache.Add(subjectID, record)
		return record, nil
	})
	if err != nil {
		return Record{}, err
	}
	return value.(Record), nil
}

// Invalidate drops a cached subject, e.g. after a status change.
func (c *CachedLookup) Invalidate(subjectID string) {
	c.cache.Remove(subjectID)
}
