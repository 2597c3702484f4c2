// Package whatsapp is the WhatsApp Cloud API transport: the webhook that
// receives customer messages, the client that sends replies, and the
// message-id dedup cache between them.
package whatsapp

import "sync"

// SeenCache is a bounded set of recently processed message IDs. The Cloud
// API redelivers webhooks on slow responses, so every message is checked
// here before it reaches the conversation engine. Oldest entries are evicted
// once maxSize is reached.
type SeenCache struct {
	mu      sync.Mutex
	ids     map[string]struct{}
	order   []string
	maxSize int
}

// NewSeenCache creates a cache holding up to maxSize message IDs; values
// <= 0 fall back to 1000.
func NewSeenCache(maxSize int) *SeenCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &SeenCache{
		ids:     make(map[string]struct{}, maxSize),
		maxSize: maxSize,
	}
}

// Seen records id and reports whether it was already present.
func (c *SeenCache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.ids[id]; ok {
		return true
	}
	if len(c.order) == c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.ids, oldest)
	}
	c.ids[id] = struct{}{}
	c.order = append(c.order, id)
	return false
}

// Len reports the number of cached IDs.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}
