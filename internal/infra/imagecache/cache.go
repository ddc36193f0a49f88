// Package imagecache provides a fetch-through cache for album and
// playlist cover images: an in-memory LRU in front of a disk cache
// keyed by URL hash. Decoding and thumbnailing are out of scope; bytes
// go in, bytes come out.
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	cacheDirName = "trackdeck/covers"
	fetchTimeout = 15 * time.Second
	maxImageSize = 4 << 20 // covers are small; anything bigger is suspect
	maxEntryAge  = 30 * 24 * time.Hour
)

// Cache caches fetched image bytes in memory and on disk.
type Cache struct {
	mem  *lru.Cache[string, []byte]
	dir  string
	http *http.Client
}

// New creates a cache rooted at dir (empty selects the XDG cache
// directory) holding at most maxEntries images in memory. Disk entries
// older than a month are pruned on construction.
func New(dir string, maxEntries int) (*Cache, error) {
	if dir == "" {
		dir = filepath.Join(xdg.CacheHome, cacheDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create image cache directory")
	}

	mem, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, errors.Wrap(err, "create memory cache")
	}

	c := &Cache{
		mem:  mem,
		dir:  dir,
		http: &http.Client{Timeout: fetchTimeout},
	}
	if err := c.Prune(maxEntryAge); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the image bytes for a URL, fetching and caching on miss.
func (c *Cache) Get(ctx context.Context, url string) ([]byte, error) {
	key := cacheKey(url)

	if data, ok := c.mem.Get(key); ok {
		return data, nil
	}

	path := filepath.Join(c.dir, key)
	if data, err := os.ReadFile(path); err == nil {
		c.mem.Add(key, data)
		return data, nil
	}

	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	c.mem.Add(key, data)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		// Memory cache still holds the image; disk write failure is
		// not fatal.
		return data, nil
	}
	return data, nil
}

// Prune removes disk entries older than maxAge.
func (c *Cache) Prune(maxAge time.Duration) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return errors.Wrap(err, "read image cache directory")
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(c.dir, entry.Name()))
		}
	}
	return nil
}

func (c *Cache) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build image request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, errors.Wrap(err, "read image body")
	}
	return data, nil
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
