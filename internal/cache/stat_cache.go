// Copyright 2024 AsyncFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"asyncfs/internal/common"
)

// DefaultTTL is how long a stat snapshot is served before the backend is asked again.
const DefaultTTL = 3 * time.Second

// DefaultMaxEntries caps memory usage of the process-wide cache.
const DefaultMaxEntries = 10000

// Default is the process-wide stat cache shared by all drivers unless a
// driver is constructed with its own.
var Default = NewStatCache(DefaultTTL, DefaultMaxEntries)

// StatCache caches stat snapshots with TTL-based expiration.
// Supports fine-grained invalidation by path.
//
// Thread-safe: Uses RWMutex for concurrent access.
// A ttl of zero or less disables caching entirely.
type StatCache struct {
	mu      sync.RWMutex
	entries map[string]*statEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

type statEntry struct {
	stat    *common.Stat
	expires time.Time
}

// NewStatCache creates a new stat cache.
// ttl: time-to-live for cached entries (zero or negative disables caching)
// maxSize: maximum number of entries (use 0 for unlimited)
func NewStatCache(ttl time.Duration, maxSize int) *StatCache {
	return &StatCache{
		entries: make(map[string]*statEntry, 256),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves the cached snapshot for a path.
// Returns nil if not found, expired, or caching is disabled.
func (c *StatCache) Get(path string) *common.Stat {
	if Disabled {
		return nil
	}

	key := common.CleanPath(path)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ttl <= 0 {
		return nil
	}

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}

	if !c.now().Before(entry.expires) {
		return nil
	}

	return entry.stat
}

// Set stores a snapshot for a path with expiry now+ttl.
// Nil snapshots are ignored: absence is never cached.
func (c *StatCache) Set(path string, stat *common.Stat) {
	if Disabled || stat == nil {
		return
	}

	key := common.CleanPath(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl <= 0 {
		return
	}

	now := c.now()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if _, exists := c.entries[key]; !exists {
			c.pruneExpiredLocked(now)
			if len(c.entries) >= c.maxSize {
				log.Tracef("[StatCache.Set] full (%d entries), not caching %q", len(c.entries), key)
				return
			}
		}
	}

	c.entries[key] = &statEntry{
		stat:    stat,
		expires: now.Add(c.ttl),
	}
}

// pruneExpiredLocked drops expired entries. Caller must hold c.mu.
func (c *StatCache) pruneExpiredLocked(now time.Time) {
	for path, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, path)
		}
	}
}

// Clear removes a specific path from the cache.
func (c *StatCache) Clear(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, common.CleanPath(path))
}

// ClearAll drops every entry from the cache.
func (c *StatCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) > 0 {
		c.entries = make(map[string]*statEntry, 256)
	}
}

// ClearPathAndParent invalidates a path and its parent directory.
// Used for unlink, rmdir, mkdir, symlink, link and put.
func (c *StatCache) ClearPathAndParent(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := common.CleanPath(path)
	delete(c.entries, key)
	if parent := common.ParentDir(key); parent != "" {
		delete(c.entries, parent)
	}
}

// ClearRename invalidates both endpoints of a rename and their parents.
func (c *StatCache) ClearRename(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, path := range []string{from, to} {
		key := common.CleanPath(path)
		delete(c.entries, key)
		if parent := common.ParentDir(key); parent != "" {
			delete(c.entries, parent)
		}
	}
}

// SetTTL changes the time-to-live for entries stored from now on.
// A non-positive ttl also drops every existing entry.
func (c *StatCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = ttl
	if ttl <= 0 && len(c.entries) > 0 {
		c.entries = make(map[string]*statEntry, 256)
	}
}

// TTL returns the configured time-to-live.
func (c *StatCache) TTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttl
}

// Size returns the current number of entries in the cache.
func (c *StatCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StatCacheStats reports cache occupancy.
type StatCacheStats struct {
	Size    int
	MaxSize int
	TTL     time.Duration
}

// Stats returns current cache statistics.
func (c *StatCache) Stats() StatCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StatCacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		TTL:     c.ttl,
	}
}
