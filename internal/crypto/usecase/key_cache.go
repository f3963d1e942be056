package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// DefaultKeyCacheTTL is how long an unwrapped tenant key is served from memory.
const DefaultKeyCacheTTL = 5 * time.Minute

// KeyLoader fetches and unwraps one tenant key on a cache miss.
type KeyLoader func(ctx context.Context) (*cryptoDomain.ResolvedKey, error)

type cacheEntry struct {
	key       *cryptoDomain.ResolvedKey
	expiresAt time.Time
}

// KeyCache holds unwrapped tenant keys keyed by (tenant, active) and (tenant, version).
//
// Entries are immutable and expire lazily: an expired entry is evicted by the read that
// finds it. Concurrent misses for the same key share a single load, so the store is hit
// and the key_access event is emitted once per miss regardless of the number of callers.
//
// A per-tenant generation counter guards against a load that started before a rotation
// storing the superseded key as active after the rotation replaced it.
type KeyCache struct {
	ttl time.Duration
	now func() time.Time

	mu          sync.RWMutex
	entries     map[string]cacheEntry
	generations map[string]uint64

	group singleflight.Group
}

// NewKeyCache creates a KeyCache. A non-positive ttl uses DefaultKeyCacheTTL.
func NewKeyCache(ttl time.Duration) *KeyCache {
	if ttl <= 0 {
		ttl = DefaultKeyCacheTTL
	}
	return &KeyCache{
		ttl:         ttl,
		now:         time.Now,
		entries:     make(map[string]cacheEntry),
		generations: make(map[string]uint64),
	}
}

// GetActive returns the tenant's active key, calling load on a miss. The loaded key is also
// cached under its version.
func (c *KeyCache) GetActive(ctx context.Context, tenantID string, load KeyLoader) (*cryptoDomain.ResolvedKey, error) {
	return c.get(ctx, tenantID, activeCacheKey(tenantID), true, load)
}

// GetVersion returns one key version of the tenant, calling load on a miss.
func (c *KeyCache) GetVersion(
	ctx context.Context,
	tenantID string,
	version uint,
	load KeyLoader,
) (*cryptoDomain.ResolvedKey, error) {
	return c.get(ctx, tenantID, versionCacheKey(tenantID, version), false, load)
}

// SetActive replaces the tenant's active entry, typically right after a rotation commits.
func (c *KeyCache) SetActive(key *cryptoDomain.ResolvedKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[key.TenantID]++
	expiresAt := c.now().Add(c.ttl)
	c.entries[activeCacheKey(key.TenantID)] = cacheEntry{key: key, expiresAt: expiresAt}
	c.entries[versionCacheKey(key.TenantID, key.Version)] = cacheEntry{key: key, expiresAt: expiresAt}

	c.group.Forget(activeCacheKey(key.TenantID))
}

// Invalidate drops the tenant's active entry. Versioned entries are kept since a version's
// key material never changes.
func (c *KeyCache) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[tenantID]++
	delete(c.entries, activeCacheKey(tenantID))
	c.group.Forget(activeCacheKey(tenantID))
}

// Len returns the number of cached entries, expired ones included.
func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close zeroes every cached key and empties the cache.
func (c *KeyCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		cryptoDomain.Zero(e.key.Key)
		delete(c.entries, k)
	}
}

func (c *KeyCache) get(
	ctx context.Context,
	tenantID, cacheKey string,
	active bool,
	load KeyLoader,
) (*cryptoDomain.ResolvedKey, error) {
	if key, ok := c.lookup(cacheKey); ok {
		return key, nil
	}

	ch := c.group.DoChan(cacheKey, func() (any, error) {
		if key, ok := c.lookup(cacheKey); ok {
			return key, nil
		}

		c.mu.RLock()
		generation := c.generations[tenantID]
		c.mu.RUnlock()

		// The load is shared by every waiter, so it must not die with the first caller's context.
		key, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.store(tenantID, cacheKey, key, active, generation)
		return key, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cryptoDomain.ResolvedKey), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *KeyCache) lookup(cacheKey string) (*cryptoDomain.ResolvedKey, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().Before(entry.expiresAt) {
		return entry.key, true
	}

	c.mu.Lock()
	if current, ok := c.entries[cacheKey]; ok && current.key == entry.key {
		delete(c.entries, cacheKey)
	}
	c.mu.Unlock()
	return nil, false
}

func (c *KeyCache) store(tenantID, cacheKey string, key *cryptoDomain.ResolvedKey, active bool, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if active {
		if c.generations[tenantID] != generation {
			return
		}
		c.entries[cacheKey] = cacheEntry{key: key, expiresAt: expiresAt}
		c.entries[versionCacheKey(tenantID, key.Version)] = cacheEntry{key: key, expiresAt: expiresAt}
		return
	}
	c.entries[cacheKey] = cacheEntry{key: key, expiresAt: expiresAt}
}

func activeCacheKey(tenantID string) string {
	return tenantID + "|active"
}

func versionCacheKey(tenantID string, version uint) string {
	return tenantID + "|v" + strconv.FormatUint(uint64(version), 10)
}
