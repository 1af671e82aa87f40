package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"tekbot/internal/port"
)

// CachedEmbedder wraps an Embedder with a bounded TTL cache keyed on input
// text. A question is encoded once by the retriever and again by the
// answer policy within the same turn; the cache makes that second call free.
type CachedEmbedder struct {
	inner   port.Embedder
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	vector    []float32
	timestamp time.Time
}

func NewCachedEmbedder(inner port.Embedder, maxSize int, ttl time.Duration) *CachedEmbedder {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedEmbedder{
		inner:   inner,
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:16])
}

func (c *CachedEmbedder) Encode(text string) ([]float32, error) {
	key := cacheKey(text)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if exists && time.Since(entry.timestamp) <= c.ttl {
		return entry.vector, nil
	}

	vector, err := c.inner.Encode(text)
	if err != nil {
		return nil, err
	}

	c.put(key, vector)
	return vector, nil
}

// EncodeBatch passes through to the inner embedder; batches are one-shot
// seed loads that gain nothing from caching.
func (c *CachedEmbedder) EncodeBatch(texts []string) ([][]float32, error) {
	return c.inner.EncodeBatch(texts)
}

func (c *CachedEmbedder) put(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{vector: vector, timestamp: time.Now()}
		return
	}

	if len(c.entries) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &cacheEntry{vector: vector, timestamp: time.Now()}
	c.order = append(c.order, key)
}

func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

func (c *CachedEmbedder) ModelName() string {
	return c.inner.ModelName()
}
