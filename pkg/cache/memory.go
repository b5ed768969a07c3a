package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory LRU cache with TTL support.
// All counters are guarded by mu.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]*list.Element
	lru   *list.List
	cfg   Config
	stats Stats

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMemoryCache creates a new in-memory LRU cache and starts its
// expiration sweeper.
func NewMemoryCache(cfg Config) *MemoryCache {
	defaults := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaults.MaxSize
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}

	c := &MemoryCache{
		items:  make(map[string]*list.Element),
		lru:    list.New(),
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// Get retrieves a value by key and marks it most recently used.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, ErrNotFound
	}

	entry := elem.Value.(*Entry)
	if entry.IsExpired() {
		c.remove(elem)
		c.stats.Misses++
		c.stats.Expirations++
		return nil, ErrNotFound
	}

	c.lru.MoveToFront(elem)
	c.stats.Hits++
	return entry.Value, nil
}

// Set stores a value. A zero ttl uses the configured default.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	size := int64(len(key) + len(value))
	if c.cfg.MaxSizeBytes > 0 && size > c.cfg.MaxSizeBytes {
		return ErrValueTooLarge
	}

	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	now := time.Now()
	entry := &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		Size:      size,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.stats.SizeBytes -= elem.Value.(*Entry).Size
		elem.Value = entry
		c.lru.MoveToFront(elem)
	} else {
		for c.lru.Len() > 0 && c.full(size) {
			c.remove(c.lru.Back())
			c.stats.Evictions++
		}
		c.items[key] = c.lru.PushFront(entry)
		c.stats.Size++
	}
	c.stats.SizeBytes += size
	c.stats.Sets++

	return nil
}

// Delete removes a key from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return ErrNotFound
	}
	c.remove(elem)
	c.stats.Deletes++
	return nil
}

// Has reports whether a live entry exists for key without touching recency.
func (c *MemoryCache) Has(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	return ok && !elem.Value.(*Entry).IsExpired()
}

// Clear removes all entries.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru.Init()
	c.stats.Size = 0
	c.stats.SizeBytes = 0
	return nil
}

// Stats returns a snapshot of cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.MaxSize = c.cfg.MaxSize
	s.MaxSizeBytes = c.cfg.MaxSizeBytes
	return s
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// full reports whether adding size bytes as a new entry would break a limit.
func (c *MemoryCache) full(size int64) bool {
	if c.stats.Size >= c.cfg.MaxSize {
		return true
	}
	return c.cfg.MaxSizeBytes > 0 && c.stats.SizeBytes+size > c.cfg.MaxSizeBytes
}

func (c *MemoryCache) remove(elem *list.Element) {
	entry := elem.Value.(*Entry)
	delete(c.items, entry.Key)
	c.lru.Remove(elem)
	c.stats.Size--
	c.stats.SizeBytes -= entry.Size
}

func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.expire(now)
		case <-c.stopCh:
			return
		}
	}
}

// expire drops every entry whose deadline is before now.
func (c *MemoryCache) expire(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*Entry).expiredAt(now) {
			c.remove(elem)
			c.stats.Expirations++
		}
		elem = prev
	}
}
