package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/persist/localfs"
)

// SFCache wraps sfcache to implement the HTTPCache interface with disk
// persistence.
type SFCache struct {
	cache *sfcache.TieredCache[string, []byte]
	ttl   time.Duration
}

// New creates a new SFCache with disk persistence at ~/.cache/threadsift.
// ttl is the default time-to-live for cached entries.
func New(ttl time.Duration) (*SFCache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(cacheDir, "threadsift"))
}

// NewWithPath creates a new SFCache with disk persistence at the specified path.
func NewWithPath(ttl time.Duration, cachePath string) (*SFCache, error) {
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	persist, err := localfs.New[string, []byte]("threadsift", cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &SFCache{cache: tc, ttl: ttl}, nil
}

// Get retrieves a cached response body by URL.
func (c *SFCache) Get(ctx context.Context, url string) ([]byte, bool) {
	data, found, err := c.cache.Get(ctx, urlToKey(url))
	if err != nil || !found {
		return nil, false
	}
	return data, true
}

// SetAsync stores a response body in the cache. Failures are swallowed;
// a broken cache must not break a fetch.
func (c *SFCache) SetAsync(ctx context.Context, url string, data []byte) error {
	_ = c.cache.Set(ctx, urlToKey(url), data, c.ttl) //nolint:errcheck // cache errors are non-critical
	return nil
}

// Close flushes and closes the cache.
func (c *SFCache) Close() error {
	return c.cache.Close()
}

// urlToKey converts a URL to a filesystem-safe, uniform-length cache key.
func urlToKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])
}

var _ HTTPCache = (*SFCache)(nil)
