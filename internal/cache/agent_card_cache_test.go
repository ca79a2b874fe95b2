package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmesh/internal/a2a"
)

func TestAgentCardCacheRoundTrip(t *testing.T) {
	c := NewAgentCardCache(NewMemoryCache(), time.Minute)
	card := &a2a.AgentCard{ProtocolVersion: a2a.ProtocolVersion, Name: "discovery-worker"}

	require.NoError(t, c.Set(context.Background(), "http://worker", card, 0))

	got, err := c.Get(context.Background(), "http://worker")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "discovery-worker", got.Name)
}

func TestAgentCardCacheMiss(t *testing.T) {
	c := NewAgentCardCache(NewMemoryCache(), time.Minute)
	got, err := c.Get(context.Background(), "http://unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAgentCardCacheClearEvictsEverything(t *testing.T) {
	c := NewAgentCardCache(NewMemoryCache(), time.Minute)
	require.NoError(t, c.Set(context.Background(), "http://a", &a2a.AgentCard{Name: "a"}, 0))
	require.NoError(t, c.Set(context.Background(), "http://b", &a2a.AgentCard{Name: "b"}, 0))

	require.NoError(t, c.Clear(context.Background()))

	got, err := c.Get(context.Background(), "http://a")
	require.NoError(t, err)
	assert.Nil(t, got)
}
