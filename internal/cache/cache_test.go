package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))

	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestMemoryCacheMissReturnsNil(t *testing.T) {
	c := NewMemoryCache()
	v, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, v, "expired entry should read back as a miss")
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(context.Background(), "k"))

	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Set(context.Background(), "agent_card:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(context.Background(), "agent_card:b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(context.Background(), "other:c", []byte("3"), time.Minute))

	require.NoError(t, c.DeletePattern(context.Background(), "agent_card:"))

	v, err := c.Get(context.Background(), "agent_card:a")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = c.Get(context.Background(), "other:c")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)
}
