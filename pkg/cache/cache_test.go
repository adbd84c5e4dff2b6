package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCache_SetGet(t *testing.T) {
	clock := newClock()
	c := New[string](WithClock(clock.Now))

	c.Set("k", "v", time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
	assert.True(t, c.Has("k"))
}

func TestCache_ExpiresLazily(t *testing.T) {
	clock := newClock()
	c := New[int](WithClock(clock.Now))

	c.Set("k", 42, time.Minute)
	clock.Advance(time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry is still valid at exactly ttl")

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestCache_DefaultTTL(t *testing.T) {
	clock := newClock()
	c := New[int](WithClock(clock.Now))

	c.Set("k", 1)
	clock.Advance(DefaultTTL)
	assert.True(t, c.Has("k"))
	clock.Advance(time.Second)
	assert.False(t, c.Has("k"))

	short := New[int](WithClock(clock.Now), WithTTL(time.Second))
	short.Set("k", 1)
	clock.Advance(2 * time.Second)
	assert.False(t, short.Has("k"))
}

func TestCache_Clear(t *testing.T) {
	c := New[int]()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	assert.False(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.Equal(t, 0, c.Len())
}

func TestCache_FetchCachesSuccess(t *testing.T) {
	c := New[string]()
	calls := 0
	fn := func() (string, error) {
		calls++
		return "value", nil
	}

	v, hit, err := c.Fetch("k", fn)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "value", v)

	v, hit, err = c.Fetch("k", fn)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)
}

func TestCache_FetchDoesNotCacheErrors(t *testing.T) {
	c := New[string]()
	boom := errors.New("boom")

	_, _, err := c.Fetch("k", func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Has("k"))
}

func TestCache_FetchSharesInFlight(t *testing.T) {
	c := New[int]()

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func() (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.Fetch("batch", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	// Give the other goroutines a chance to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestCache_ClearDetachesInFlight(t *testing.T) {
	c := New[string]()

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan string)

	go func() {
		v, _, err := c.Fetch("batch", func() (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	c.Clear()

	var calls atomic.Int32
	v, hit, err := c.Fetch("batch", func() (string, error) {
		calls.Add(1)
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	assert.Equal(t, "stale", <-done)

	cached, ok := c.Get("batch")
	require.True(t, ok)
	assert.Equal(t, "fresh", cached)
}

func TestBatchKey(t *testing.T) {
	a := BatchKey("sessions", []string{"b", "a", "c"})
	b := BatchKey("sessions", []string{"c", "a", "b", "a"})
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, BatchKey("patients", []string{"a", "b", "c"}))
	assert.NotEqual(t, a, BatchKey("sessions", []string{"a", "b"}))
	assert.Equal(t, BatchKey("x", nil), BatchKey("x", []string{}))
}
