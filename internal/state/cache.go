package state

import "sync"

// Cache maps device id to its latest Snapshot.
//
// Put has a single logical writer (the ingestor) but is safe to call from
// any goroutine. Stored and returned snapshots are deep copies, so nothing
// outside the cache can alter a value once it is published.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Snapshot
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Snapshot)}
}

// Put atomically replaces the snapshot of s.DeviceID.
func (c *Cache) Put(s Snapshot) {
	s = s.clone()

	c.mu.Lock()
	c.entries[s.DeviceID] = s
	c.mu.Unlock()
}

// Get returns the latest snapshot of a device. Unknown ids return the zero
// Snapshot and false, never an error.
func (c *Cache) Get(deviceID string) (Snapshot, bool) {
	c.mu.RLock()
	s, ok := c.entries[deviceID]
	c.mu.RUnlock()

	if !ok {
		return Snapshot{}, false
	}
	return s.clone(), true
}

// Len returns the number of devices with a snapshot.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
