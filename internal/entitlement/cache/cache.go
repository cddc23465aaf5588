// Package cache stores resolved entitlement sets between requests.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	id "kycgate/pkg/domain"
)

// ErrStale is returned by Set when a Delete or Flush happened after the Get
// that produced the entry's Version. The entry is not stored.
var ErrStale = errors.New("entitlement cache entry is stale")

// Version is the cache state a Get observed: the global generation bumped by
// Flush and the per-user version bumped by Delete.
type Version struct {
	Generation int64
	User       int64
}

// Entry is a cached entitlement set. Get fills Version on hits and misses;
// Set only writes while Version is still current.
type Entry struct {
	ServiceIDs []id.ServiceID `json:"service_ids"`
	Version    Version        `json:"-"`
}

// MemoryCache is a process-local cache used when Redis is not configured.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[id.UserID]memoryEntry
	generation int64
	versions   map[id.UserID]int64
	now        func() time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[id.UserID]memoryEntry),
		versions: make(map[id.UserID]int64),
		now:      time.Now,
	}
}

// WithClock replaces the expiry clock.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, userID id.UserID) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	version := c.version(userID)
	e, ok := c.entries[userID]
	if !ok {
		return Entry{Version: version}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, userID)
		return Entry{Version: version}, false, nil
	}
	ids := append([]id.ServiceID(nil), e.entry.ServiceIDs...)
	return Entry{ServiceIDs: ids, Version: version}, true, nil
}

func (c *MemoryCache) version(userID id.UserID) Version {
	return Version{Generation: c.generation, User: c.versions[userID]}
}

func (c *MemoryCache) Set(_ context.Context, userID id.UserID, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry.Version != c.version(userID) {
		return ErrStale
	}
	ids := append([]id.ServiceID(nil), entry.ServiceIDs...)
	c.entries[userID] = memoryEntry{entry: Entry{ServiceIDs: ids, Version: entry.Version}, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, userID id.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.versions[userID]++
	return nil
}

// Flush drops every entry. Per-user versions restart with the new generation.
func (c *MemoryCache) Flush(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries = make(map[id.UserID]memoryEntry)
	c.versions = make(map[id.UserID]int64)
	return nil
}
