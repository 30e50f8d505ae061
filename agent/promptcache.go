package agent

import (
	"time"

	"github.com/agentmail-dev/agentmail/log"
)

// promptTTL is how long a synthesized prompt stays in the external cache
const promptTTL = 7 * 24 * time.Hour

// PromptStore is the KV surface the prompt cache needs
type PromptStore interface {
	Get(key string) (string, bool, error)
	Put(key, value string, ttl time.Duration) error
}

// PromptCache is the external tier of the two-tier prompt cache, keyed by
// the exact recipient address. Concurrent misses may both generate and
// both write; last write wins and both prompts are valid completions of
// the same instruction, so there is no locking.
type PromptCache struct {
	store PromptStore
}

// NewPromptCache wraps a KV store
func NewPromptCache(store PromptStore) *PromptCache {
	return &PromptCache{store: store}
}

// Get returns the cached prompt for an address, if present
func (c *PromptCache) Get(address string) (string, bool) {
	prompt, ok, err := c.store.Get("agent-prompt:" + address)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("prompt cache read failed")
		return "", false
	}
	return prompt, ok
}

// Put caches a prompt for an address with the 7-day TTL
func (c *PromptCache) Put(address, prompt string) {
	if err := c.store.Put("agent-prompt:"+address, prompt, promptTTL); err != nil {
		log.Error().Err(err).Str("address", address).Msg("prompt cache write failed")
	}
}
