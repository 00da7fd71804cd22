// Package cache keeps recently built retrieval indices keyed by document hash.
package cache

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/filing-analyzer/internal/core/ports"
)

// IndexCache shares built indices between requests for byte-identical uploads.
// Evicted indices are closed.
type IndexCache struct {
	entries *lru.Cache[string, ports.RetrievalIndex]
}

func New(size int) (*IndexCache, error) {
	entries, err := lru.NewWithEvict[string, ports.RetrievalIndex](size, func(key string, idx ports.RetrievalIndex) {
		if err := idx.Close(context.Background()); err != nil {
			slog.Warn("index_cache_evict_close_failed", "key", key, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("init index cache: %w", err)
	}
	return &IndexCache{entries: entries}, nil
}

func (c *IndexCache) Get(key string) (ports.RetrievalIndex, bool) {
	return c.entries.Get(key)
}

func (c *IndexCache) Add(key string, idx ports.RetrievalIndex) {
	c.entries.Add(key, idx)
}

func (c *IndexCache) Len() int {
	return c.entries.Len()
}

// Purge drops and closes every cached index.
func (c *IndexCache) Purge() {
	c.entries.Purge()
}
