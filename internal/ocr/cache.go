package ocr

import (
	"container/list"
	"sync"

	"ticketflow/internal/logging"
)

// Cache memoizes OCR results by page content hash. It is an explicit object
// owned by the caller (typically one per process, shared across workers) so
// rescans of identical pages skip the engine entirely.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*list.Element
	order   *list.List // front = most recent

	hits   int
	misses int
}

type cacheEntry struct {
	key    string
	result Result
}

// NewCache creates a cache holding up to max results. max <= 0 disables
// caching.
func NewCache(max int) *Cache {
	return &Cache{
		max:     max,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached result for a page hash.
func (c *Cache) Get(pageHash string) (Result, bool) {
	if c == nil || c.max <= 0 {
		return Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[pageHash]
	if !ok {
		c.misses++
		return Result{}, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return el.Value.(*cacheEntry).result, true
}

// Put stores a result under its page hash, evicting the least recently used
// entry when full.
func (c *Cache) Put(pageHash string, res Result) {
	if c == nil || c.max <= 0 || pageHash == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[pageHash]; ok {
		el.Value.(*cacheEntry).result = res
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: pageHash, result: res})
	c.entries[pageHash] = el

	for c.order.Len() > c.max {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Stats returns hit/miss counters for the batch summary log.
func (c *Cache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// LogStats writes the counters to the ocr log category.
func (c *Cache) LogStats() {
	hits, misses := c.Stats()
	logging.OCR("cache stats: %d hits, %d misses", hits, misses)
}
