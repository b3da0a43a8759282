package embedding

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of embeddings kept when caching is enabled.
const DefaultCacheSize = 4096

// Cache is an LRU of normalized embeddings keyed by model and text.
type Cache struct {
	lru *lru.Cache[uint64, []float32]
}

// NewCache creates a cache holding up to capacity embeddings.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	c, err := lru.New[uint64, []float32](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Key hashes model and text into a cache key.
func Key(model, text string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(model)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(text)
	return d.Sum64()
}

// Get returns a copy of the cached embedding.
func (c *Cache) Get(key uint64) ([]float32, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return append([]float32(nil), v...), true
}

// Set stores a copy of value.
func (c *Cache) Set(key uint64, value []float32) {
	c.lru.Add(key, append([]float32(nil), value...))
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int { return c.lru.Len() }
