package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentmesh/internal/a2a"
)

// AgentCardCache is the A2A Client's typed view of Cache, keyed by agent
// base URL, per spec.md §4.3: "Agent Card entries expire by absolute time".
type AgentCardCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// NewAgentCardCache wraps cache with a default TTL applied when callers
// pass ttl == 0 to Set.
func NewAgentCardCache(cache Cache, defaultTTL time.Duration) *AgentCardCache {
	if defaultTTL == 0 {
		defaultTTL = 5 * time.Minute
	}
	return &AgentCardCache{cache: cache, defaultTTL: defaultTTL}
}

func (c *AgentCardCache) cacheKey(baseURL string) string {
	return fmt.Sprintf("agent_card:%s", baseURL)
}

// Get returns the cached card for baseURL, or nil on a cache miss.
func (c *AgentCardCache) Get(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	data, err := c.cache.Get(ctx, c.cacheKey(baseURL))
	if err != nil {
		return nil, fmt.Errorf("get agent card from cache: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var card a2a.AgentCard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("unmarshal cached agent card: %w", err)
	}
	return &card, nil
}

// Set stores card for baseURL, using the cache's default TTL when ttl == 0.
func (c *AgentCardCache) Set(ctx context.Context, baseURL string, card *a2a.AgentCard, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal agent card for cache: %w", err)
	}
	if err := c.cache.Set(ctx, c.cacheKey(baseURL), data, ttl); err != nil {
		return fmt.Errorf("set agent card in cache: %w", err)
	}
	return nil
}

// Delete evicts the cached card for baseURL. ClearCache uses Clear instead.
func (c *AgentCardCache) Delete(ctx context.Context, baseURL string) error {
	if err := c.cache.Delete(ctx, c.cacheKey(baseURL)); err != nil {
		return fmt.Errorf("delete agent card from cache: %w", err)
	}
	return nil
}

// Clear evicts every cached agent card.
func (c *AgentCardCache) Clear(ctx context.Context) error {
	return c.cache.DeletePattern(ctx, "agent_card:")
}

// Close releases the underlying cache's resources.
func (c *AgentCardCache) Close() error {
	return c.cache.Close()
}
