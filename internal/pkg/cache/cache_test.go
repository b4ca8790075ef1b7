package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type menuRow struct {
	ID    string `json:"id"`
	Price string `json:"price"`
}

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	var got []menuRow
	hit, err := m.Get(ctx, "products:list:all", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []menuRow{{ID: "adobo", Price: "60.00"}}
	require.NoError(t, m.Set(ctx, "products:list:all", want, 0))

	hit, err = m.Get(ctx, "products:list:all", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
}

func TestMemoryExpiryAndSweep(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, m.Set(ctx, "b", 2, 10*time.Minute))

	now = now.Add(2 * time.Minute)

	var v int
	hit, err := m.Get(ctx, "a", &v)
	require.NoError(t, err)
	assert.False(t, hit, "expired entry must not be served")

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	hit, err = m.Get(ctx, "b", &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, v)
}

func TestMemoryBackgroundSweep(t *testing.T) {
	m := NewMemory(5 * time.Millisecond)
	defer m.Close()

	require.NoError(t, m.Set(context.Background(), "short", "x", time.Millisecond))
	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryInvalidate(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	for _, k := range []string{"products:list:all", "products:list:drinks", "orders:1"} {
		require.NoError(t, m.Set(ctx, k, k, 0))
	}

	require.NoError(t, m.InvalidatePrefix(ctx, "products:"))
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Invalidate(ctx, "orders:1"))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryCloseIsIdempotent(t *testing.T) {
	m := NewMemory(time.Millisecond)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedis(client, "cache:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "products:list:all", []menuRow{{ID: "sinigang", Price: "120.00"}}, time.Minute))
	require.NoError(t, c.Set(ctx, "products:list:drinks", []menuRow{}, time.Minute))
	require.NoError(t, c.Set(ctx, "other", "keep", time.Minute))

	var got []menuRow
	hit, err := c.Get(ctx, "products:list:all", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "sinigang", got[0].ID)

	mr.FastForward(2 * time.Minute)
	hit, err = c.Get(ctx, "products:list:all", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "products:list:all", []menuRow{}, time.Minute))
	require.NoError(t, c.Set(ctx, "products:list:drinks", []menuRow{}, time.Minute))
	require.NoError(t, c.Set(ctx, "other", "keep", time.Minute))
	require.NoError(t, c.InvalidatePrefix(ctx, "products:"))
	assert.False(t, mr.Exists("cache:products:list:all"))
	assert.False(t, mr.Exists("cache:products:list:drinks"))
	assert.True(t, mr.Exists("cache:other"))
}

func TestNewUnknownDriver(t *testing.T) {
	_, _, err := New("memcached", nil, 0)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
