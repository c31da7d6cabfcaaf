// Package cache implements the process-wide answer cache consulted before
// any retrieval work. Entries are prepended, so on duplicate keys the newest
// value shadows older ones; lookup returns the first structural match.
package cache

import (
	"sync"
	"time"

	"github.com/uniconsult/backend/pkg/utils"
)

type Entry struct {
	Key            string
	Query          string
	Answer         string
	Timestamp      time.Time
	ProcessingTime float64
}

// ResponseCache is an injected service, not module-level state. Capacity 0
// keeps the historical unbounded behavior; a positive capacity evicts the
// least recently inserted entry on overflow.
type ResponseCache struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

func New(capacity int) *ResponseCache {
	return &ResponseCache{capacity: capacity}
}

// Get scans entries in stored order and returns the answer of the first key
// match, a hit flag, and the processing time recorded when it was stored.
func (c *ResponseCache) Get(query string) (string, bool, float64) {
	key := utils.QueryKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.Key == key {
			return e.Answer, true, e.ProcessingTime
		}
	}
	return "", false, 0
}

// Set prepends a new entry. There is no update-in-place; a re-inserted key
// simply shadows its older entries.
func (c *ResponseCache) Set(query, answer string, processingTime float64) {
	entry := Entry{
		Key:            utils.QueryKey(query),
		Query:          query,
		Answer:         answer,
		Timestamp:      time.Now(),
		ProcessingTime: processingTime,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append([]Entry{entry}, c.entries...)
	if c.capacity > 0 && len(c.entries) > c.capacity {
		c.entries = c.entries[:c.capacity]
	}
}

// Purge drops every entry. Wired to index rebuilds when the purge-on-rebuild
// policy is enabled.
func (c *ResponseCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Len reports the current entry count, duplicates included.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
