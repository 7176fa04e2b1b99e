package ledger

import "finetract/internal/models"

// debounceCache is the in-memory last-seen map for (source, amount) keys.
// It is intentionally non-persistent: it exists to suppress near-duplicate
// notification bursts, not for correctness, so losing it on restart is
// fine. Bounded so a chatty source cannot grow it without limit.
type debounceCache struct {
	lastSeen map[string]int64 // key -> unix millis of last accepted event
	order    []string         // insertion order for eviction
	capacity int
}

func newDebounceCache(capacity int) *debounceCache {
	return &debounceCache{
		lastSeen: make(map[string]int64, capacity),
		capacity: capacity,
	}
}

func debounceKey(source string, amount float64) string {
	return source + "|" + models.FormatAmount(amount)
}

// withinWindow reports whether an event at ts is within windowMillis of the
// last accepted event for the key.
func (c *debounceCache) withinWindow(key string, ts, windowMillis int64) bool {
	last, ok := c.lastSeen[key]
	if !ok {
		return false
	}
	delta := ts - last
	if delta < 0 {
		delta = -delta
	}
	return delta < windowMillis
}

// record stores the timestamp of an accepted event, evicting the oldest
// key when the cache is full.
func (c *debounceCache) record(key string, ts int64) {
	if _, exists := c.lastSeen[key]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.lastSeen, oldest)
		}
		c.order = append(c.order, key)
	}
	c.lastSeen[key] = ts
}
