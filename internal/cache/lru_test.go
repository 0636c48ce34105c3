package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewViewCache[int](2, time.Minute)
	c.Set(1, "a", 1)
	c.Set(1, "b", 2)

	_, ok := c.Get(1, "a")
	require.True(t, ok)

	c.Set(1, "c", 3)

	_, ok = c.Get(1, "b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get(1, "a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestViewCache_NewVersionDropsOlderEntries(t *testing.T) {
	c := NewViewCache[string](10, time.Minute)
	c.Set(3, "bills", "v3")

	_, ok := c.Get(4, "bills")
	assert.False(t, ok, "entry computed from version 3 must not serve version 4")

	c.Set(4, "charts", "v4")
	assert.Equal(t, 1, c.Size())
	_, ok = c.Get(3, "bills")
	assert.False(t, ok)

	c.Set(2, "late", "stale")
	assert.Equal(t, 1, c.Size(), "writes for an older version are ignored")
}

func TestViewCache_Expiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewViewCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set(1, "k", "v")
	_, ok := c.Get(1, "k")
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(1, "k")
	assert.False(t, ok)

	c.Set(1, "x", "1")
	c.Set(1, "y", "2")
	now = now.Add(2 * time.Second)
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestViewCache_OverwritePurgeAndStats(t *testing.T) {
	c := NewViewCache[int](3, time.Minute)
	c.Set(1, "a", 1)
	c.Set(1, "a", 2)
	v, _ := c.Get(1, "a")
	assert.Equal(t, 2, v)
	_, _ = c.Get(1, "missing")

	st := c.Stats()
	assert.EqualValues(t, 1, st.Hits)
	assert.EqualValues(t, 1, st.Misses)
	assert.Equal(t, 1, st.Size)

	c.Purge()
	assert.Equal(t, 0, c.Size())
}

func TestManager_SweepsAndReports(t *testing.T) {
	m := NewManager(nil)
	c := NewViewCache[int](1, time.Nanosecond)
	c.Set(1, "a", 1)
	m.Register("bills", c)
	assert.Equal(t, []string{"bills"}, m.Names())

	m.StartCleanup(time.Millisecond)
	require.Eventually(t, func() bool { return m.Stats()["bills"].Size == 0 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
	m.Wait()
}
