// Package cache memoizes clustering, mining and projection results keyed by
// a hash of their inputs, so repeated requests skip recomputation.
package cache

import (
	"context"
	"time"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
)

// Common errors.
var (
	ErrNotFound      = errors.New("key not found")
	ErrValueTooLarge = errors.New("value exceeds maximum size")
)

// Cache defines the interface for KV caching.
type Cache interface {
	// Get retrieves a value by key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with optional TTL. Zero TTL falls back to the default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Has checks if a key exists without retrieving the value.
	Has(ctx context.Context, key string) bool

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error

	// Stats returns cache statistics.
	Stats() Stats

	// Close releases resources.
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Deletes     int64 `json:"deletes"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`

	// Size is the current number of entries.
	Size int64 `json:"size"`

	// SizeBytes is the summed length of keys and values.
	SizeBytes int64 `json:"sizeBytes"`

	MaxSize      int64 `json:"maxSize"`
	MaxSizeBytes int64 `json:"maxSizeBytes"`
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Config holds cache configuration.
type Config struct {
	// MaxSize is the maximum number of entries.
	MaxSize int64

	// MaxSizeBytes is the maximum memory in bytes (0 = unlimited).
	MaxSizeBytes int64

	// DefaultTTL is the default expiration time for entries without explicit TTL.
	DefaultTTL time.Duration

	// CleanupInterval is how often to run expiration cleanup.
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:         1000,
		MaxSizeBytes:    64 * 1024 * 1024, // 64MB
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Entry represents a cached item.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time
	Size      int64
}

// IsExpired checks if the entry has expired.
func (e Entry) IsExpired() bool {
	return e.expiredAt(time.Now())
}

func (e Entry) expiredAt(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
