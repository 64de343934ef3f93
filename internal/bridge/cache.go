package bridge

import (
	"sync"

	"github.com/leadgenlite/voicebridge/domain/entities"
)

// ContextCache is the in-memory cache of active call contexts. Entries are
// inserted when a call is resolved and removed when the call ends, so the
// cache only ever holds in-flight calls. Insertion and deletion are the only
// mutations.
type ContextCache struct {
	mu      sync.RWMutex
	entries map[string]entities.CallContext
}

// NewContextCache creates an empty cache.
func NewContextCache() *ContextCache {
	return &ContextCache{
		entries: make(map[string]entities.CallContext),
	}
}

// Put stores a context under one key. A call's context is stored under both
// its call identifier and, once known, its record identifier.
func (c *ContextCache) Put(key string, callCtx entities.CallContext) {
	if key == "" {
		return
	}
	c.mu.Lock()
	c.entries[key] = callCtx
	c.mu.Unlock()
}

// Get returns the context stored under key.
func (c *ContextCache) Get(key string) (entities.CallContext, bool) {
	if key == "" {
		return entities.CallContext{}, false
	}
	c.mu.RLock()
	callCtx, ok := c.entries[key]
	c.mu.RUnlock()
	return callCtx, ok
}

// Delete removes all given keys. Empty keys are ignored.
func (c *ContextCache) Delete(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		if key != "" {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *ContextCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
