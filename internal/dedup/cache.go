package dedup

import (
	"sync"
)

// signatureCache maps question signatures to the id of the stored question
// they matched. It is insertion-ordered and bounded: when an insert would
// exceed the bound, the oldest quarter of entries is dropped in one batch.
// Matching a signature never extends its lifetime; only re-registering does.
type signatureCache struct {
	ids        map[string]int64
	order      []string
	maxEntries int
	mu         sync.Mutex
}

// newSignatureCache creates a cache bounded at maxEntries signatures.
func newSignatureCache(maxEntries int) *signatureCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxCacheEntries
	}
	return &signatureCache{
		ids:        make(map[string]int64, maxEntries),
		order:      make([]string, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

// get returns the id cached for a signature.
func (c *signatureCache) get(signature string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.ids[signature]
	return id, ok
}

// put records a signature-to-id mapping, evicting the oldest batch first if
// the cache is full. Eviction and insert happen under one lock acquisition so
// concurrent registrations cannot interleave inconsistently.
func (c *signatureCache) put(signature string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.ids[signature]; exists {
		// Re-registration refreshes the entry's position in eviction order.
		for i, key := range c.order {
			if key == signature {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
		c.ids[signature] = id
		c.order = append(c.order, signature)
		return
	}

	if len(c.ids) >= c.maxEntries {
		evict := c.maxEntries / evictDivisor
		if evict < 1 {
			evict = 1
		}
		for _, key := range c.order[:evict] {
			delete(c.ids, key)
		}
		c.order = append([]string(nil), c.order[evict:]...)
	}

	c.ids[signature] = id
	c.order = append(c.order, signature)
}

// clear removes all entries from the cache.
func (c *signatureCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]int64, c.maxEntries)
	c.order = c.order[:0]
}

// size returns the number of cached signatures.
func (c *signatureCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}
