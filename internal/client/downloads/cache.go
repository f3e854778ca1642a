package downloads

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// CachedFile is a downloaded blob and the object URL that serves it.
type CachedFile struct {
	Data     []byte
	URL      string
	MimeType string
}

type cacheEntry struct {
	file       CachedFile
	lastAccess time.Time
	released   bool
}

// BlobCache maps note ids to cached blobs. Entries expire after ttl without
// a read and are evicted least-recently-used first when the cache is full.
// Whenever an entry leaves the cache its URL is passed to release, once.
type BlobCache struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, *cacheEntry]
	ttl     time.Duration
	now     func() time.Time
	release func(url string) error
	log     logging.Logger
}

// NewBlobCache builds a cache holding at most size entries. release may be
// nil.
func NewBlobCache(size int, ttl time.Duration, release func(url string) error, log logging.Logger) (*BlobCache, error) {
	if log == nil {
		log = logging.Nop()
	}
	c := &BlobCache{ttl: ttl, now: time.Now, release: release, log: log}
	l, err := simplelru.NewLRU[string, *cacheEntry](size, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// onEvict runs with c.mu held.
func (c *BlobCache) onEvict(id string, e *cacheEntry) {
	c.releaseEntry(id, e)
}

func (c *BlobCache) releaseEntry(id string, e *cacheEntry) {
	if e.released {
		return
	}
	e.released = true
	cacheReleasesTotal.Inc()
	if c.release == nil || e.file.URL == "" {
		return
	}
	if err := c.release(e.file.URL); err != nil {
		c.log.Warn(context.Background(), "release cached blob", "note_id", id, "error", err)
	}
}

// Put stores f under id. A previous entry with a different URL is released.
func (c *BlobCache) Put(id string, f CachedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(id); ok && old.file.URL != f.URL {
		c.releaseEntry(id, old)
	}
	c.lru.Add(id, &cacheEntry{file: f, lastAccess: c.now()})
}

// Get returns the entry for id and refreshes its access time.
func (c *BlobCache) Get(id string) (CachedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(id)
	if !ok {
		cacheMissesTotal.Inc()
		return CachedFile{}, false
	}
	cacheHitsTotal.Inc()
	e.lastAccess = c.now()
	return e.file, true
}

// Remove drops id and releases its URL. It reports whether id was cached.
func (c *BlobCache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(id)
}

// Sweep removes every entry idle for longer than the ttl and returns how
// many were removed.
func (c *BlobCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, id := range c.lru.Keys() {
		e, ok := c.lru.Peek(id)
		if !ok {
			continue
		}
		if now.Sub(e.lastAccess) > c.ttl {
			c.lru.Remove(id)
			removed++
		}
	}
	return removed
}

// Purge releases and removes everything.
func (c *BlobCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

func (c *BlobCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
