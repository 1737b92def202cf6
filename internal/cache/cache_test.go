package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGet(t *testing.T) {
	c := New[string](4, time.Minute)

	c.Put(1, "one")
	c.Put(2, "two")

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	v, ok = c.Get(2)
	require.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestCache_MissOnAbsentKey(t *testing.T) {
	c := New[string](4, time.Minute)

	_, ok := c.Get(99)
	assert.False(t, ok)
}

func TestCache_PutOverwritesExisting(t *testing.T) {
	c := New[string](4, time.Minute)

	c.Put(1, "one")
	c.Put(1, "uno")

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "uno", v)
	assert.Equal(t, 1, c.Len())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string](2, time.Minute)

	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(3, "three")

	// Key 1 was the oldest, so it goes first
	_, ok := c.Get(1)
	assert.False(t, ok, "oldest entry should be evicted")

	_, ok = c.Get(2)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestCache_GetRefreshesRecency(t *testing.T) {
	c := New[string](2, time.Minute)

	c.Put(1, "one")
	c.Put(2, "two")

	// Touch 1 so 2 becomes the eviction candidate
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Put(3, "three")

	_, ok = c.Get(2)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(1)
	assert.True(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewWithClock[string](4, time.Minute, func() time.Time { return now })

	c.Put(1, "one")

	// Still fresh just before the deadline
	now = now.Add(59 * time.Second)
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	// Expired at the deadline
	now = now.Add(time.Second)
	_, ok = c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be swept on read")
}

func TestCache_GetDoesNotExtendTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewWithClock[string](4, time.Minute, func() time.Time { return now })

	c.Put(1, "one")

	// Repeated reads inside the window must not push the deadline out
	for i := 0; i < 5; i++ {
		now = now.Add(10 * time.Second)
		_, ok := c.Get(1)
		require.True(t, ok)
	}

	now = now.Add(10 * time.Second)
	_, ok := c.Get(1)
	assert.False(t, ok, "TTL runs from store time, not last access")
}

func TestCache_PutResetsTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewWithClock[string](4, time.Minute, func() time.Time { return now })

	c.Put(1, "one")
	now = now.Add(50 * time.Second)
	c.Put(1, "uno")

	// 70s after the first Put but only 20s after the second
	now = now.Add(20 * time.Second)
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "uno", v)
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewWithClock[string](4, 0, func() time.Time { return now })

	c.Put(1, "one")
	now = now.Add(24 * time.Hour)

	_, ok := c.Get(1)
	assert.True(t, ok)
}

func TestCache_Delete(t *testing.T) {
	c := New[string](4, time.Minute)

	c.Put(1, "one")
	c.Delete(1)

	_, ok := c.Get(1)
	assert.False(t, ok)

	// Deleting an absent key is a no-op
	c.Delete(42)
}

func TestCache_Clear(t *testing.T) {
	c := New[string](4, time.Minute)

	c.Put(1, "one")
	c.Put(2, "two")
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)

	// Cache stays usable after Clear
	c.Put(3, "three")
	v, ok := c.Get(3)
	require.True(t, ok)
	assert.Equal(t, "three", v)
}

func TestCache_NilReceiverIsSafe(t *testing.T) {
	var c *Cache[string]

	assert.NotPanics(t, func() {
		c.Put(1, "one")
		_, ok := c.Get(1)
		assert.False(t, ok)
		c.Delete(1)
		c.Clear()
		assert.Equal(t, 0, c.Len())
	})
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](64, time.Minute)
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := int64(n % 8)
			c.Put(key, n)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 8)
}
