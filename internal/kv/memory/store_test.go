package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStoreGetSetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", got)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreExpiresEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := &manualClock{now: time.Unix(1700000000, 0)}
	s := NewWithClock(clk.Now)

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	require.Equal(t, 1, s.Len())

	clk.Advance(59 * time.Second)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	clk.Advance(time.Second)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, s.Len())
}

func TestStoreSetIfAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := &manualClock{now: time.Unix(1700000000, 0)}
	s := NewWithClock(clk.Now)

	ok, err := s.SetIfAbsent(ctx, "lock", "a", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetIfAbsent(ctx, "lock", "b", 30*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	clk.Advance(30 * time.Second)
	ok, err = s.SetIfAbsent(ctx, "lock", "c", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	got, _, err := s.Get(ctx, "lock")
	require.NoError(t, err)
	require.Equal(t, "c", got)
}

func TestStoreSetIfAbsentIsExclusiveUnderContention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.SetIfAbsent(ctx, "lock", "x", time.Minute)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, winners)
}
