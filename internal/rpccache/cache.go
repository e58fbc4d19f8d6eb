package rpccache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/jsonrpc"
)

// maxEntries is the sweep threshold: once the table holds more than this,
// the next insert sweeps expired entries. Fresh entries are never evicted,
// so the table can grow past it.
const maxEntries = 1000

type entry struct {
	result     json.RawMessage
	insertedAt time.Time
}

// Cache is a TTL cache of successful upstream results, keyed by
// method plus canonical params. Error responses are never stored.
type Cache struct {
	mutex   sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Key derives the cache key for a request.
func Key(method string, params json.RawMessage) string {
	return method + ":" + jsonrpc.CompactParams(params)
}

// Get returns the cached result for key if it is still fresh.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if time.Since(e.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	return e.result, true
}

// Put stores a successful result under key, sweeping expired entries when
// the table has outgrown its cap.
func (c *Cache) Put(key string, result json.RawMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.entries) > maxEntries {
		c.sweepLocked()
	}

	c.entries[key] = entry{result: result, insertedAt: time.Now()}
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) sweepLocked() {
	for key, e := range c.entries {
		if time.Since(e.insertedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
}
