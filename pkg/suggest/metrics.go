package suggest

import "sync/atomic"

// Counters are session-scoped telemetry: monotonically non-decreasing,
// never persisted, discarded with the process.
type Counters struct {
	requests  atomic.Int64
	cacheHits atomic.Int64
	debounced atomic.Int64
}

// MetricsSnapshot is a point-in-time read of the counters with the derived
// hit rate computed on the spot.
type MetricsSnapshot struct {
	Requests  int64   `json:"requests" msgpack:"rq"`
	CacheHits int64   `json:"cache_hits" msgpack:"ch"`
	Debounced int64   `json:"debounced" msgpack:"db"`
	HitRate   float64 `json:"hit_rate" msgpack:"hr"`
}

// AddRequest records one suggestion request issued to the backend.
func (c *Counters) AddRequest() { c.requests.Add(1) }

// AddCacheHit records one suggestion list served from the cache.
func (c *Counters) AddCacheHit() { c.cacheHits.Add(1) }

// AddDebounced records one keystroke collapsed by the debouncer.
func (c *Counters) AddDebounced() { c.debounced.Add(1) }

// Snapshot reads the counters. Ratios are derived here, not stored: the hit
// rate is cacheHits over requests issued, guarded against division by zero.
func (c *Counters) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Requests:  c.requests.Load(),
		CacheHits: c.cacheHits.Load(),
		Debounced: c.debounced.Load(),
	}
	if s.Requests > 0 {
		s.HitRate = float64(s.CacheHits) / float64(s.Requests)
	}
	return s
}
