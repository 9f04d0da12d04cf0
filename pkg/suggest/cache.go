package suggest

import (
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultCacheCapacity bounds the query cache to 100 entries.
const DefaultCacheCapacity = 100

// QueryCache maps normalized queries to ordered suggestion lists.
// The bound is FIFO, not LRU: eviction always removes the oldest-inserted
// entry, no matter how often other entries were read since. Get never
// reorders anything and never touches the telemetry counters; the caller
// records hits.
type QueryCache struct {
	entries  map[string][]Suggestion
	order    []string
	capacity int
	mu       sync.RWMutex
}

// NewQueryCache creates a cache bounded to capacity entries.
// A capacity <= 0 falls back to DefaultCacheCapacity.
func NewQueryCache(capacity int) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &QueryCache{
		entries:  make(map[string][]Suggestion, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Get returns the cached list for key, exact match only.
func (qc *QueryCache) Get(key string) ([]Suggestion, bool) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()
	list, ok := qc.entries[key]
	return list, ok
}

// Put inserts key at the end of the insertion order. Re-inserting an existing
// key counts as a fresh insert: it moves to the end and the bound is
// re-checked, so a frequently re-queried key earns no protection from its
// hit count.
func (qc *QueryCache) Put(key string, list []Suggestion) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	if _, exists := qc.entries[key]; exists {
		for i, k := range qc.order {
			if k == key {
				qc.order = append(qc.order[:i], qc.order[i+1:]...)
				break
			}
		}
	}
	qc.entries[key] = list
	qc.order = append(qc.order, key)

	if len(qc.entries) > qc.capacity {
		oldest := qc.order[0]
		qc.order = qc.order[1:]
		delete(qc.entries, oldest)
		log.Debugf("Evicted query '%s' from suggestion cache", oldest)
	}
}

// Size returns the number of cached queries.
func (qc *QueryCache) Size() int {
	qc.mu.RLock()
	defer qc.mu.RUnlock()
	return len(qc.entries)
}

// Stats reports cache occupancy for debugging surfaces.
func (qc *QueryCache) Stats() map[string]int {
	qc.mu.RLock()
	defer qc.mu.RUnlock()
	return map[string]int{
		"cachedQueries": len(qc.entries),
		"capacity":      qc.capacity,
	}
}
