package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(max int) (*Cache, *clock) {
	clk := &clock{now: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
	return New(max).WithClock(clk.Now), clk
}

func counter(calls *int32, value string) func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestKeyHasPrefix(t *testing.T) {
	k := NewKey("requests", "detail", "42")
	if !k.HasPrefix(NewKey("requests")) || !k.HasPrefix(k) {
		t.Error("expected prefix match")
	}
	if k.HasPrefix(NewKey("requests", "paginated-list")) || k.HasPrefix(k.Append("x")) {
		t.Error("unexpected prefix match")
	}
	if k.String() != "requests/detail/42" {
		t.Errorf("unexpected string %s", k)
	}
}

func TestFetch_FreshHitSkipsFetcher(t *testing.T) {
	c, clk := newTestCache(10)
	key := NewKey("drivers", "stats")
	opts := Options{StaleTime: 5 * time.Minute}
	var calls int32

	for i := 0; i < 3; i++ {
		v, err := c.Fetch(context.Background(), key, opts, counter(&calls, "stats"))
		if err != nil || v != "stats" {
			t.Fatalf("unexpected result %v %v", v, err)
		}
		clk.Advance(time.Minute)
	}
	if calls != 1 {
		t.Errorf("expected one fetch, got %d", calls)
	}

	clk.Advance(5 * time.Minute)
	if _, err := c.Fetch(context.Background(), key, opts, counter(&calls, "stats")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("stale entry should refetch, got %d calls", calls)
	}
}

func TestFetch_ZeroStaleTimeAlwaysRefetches(t *testing.T) {
	c, _ := newTestCache(10)
	var calls int32
	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background(), NewKey("k"), Options{}, counter(&calls, "v")); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 2 {
		t.Errorf("expected 2 fetches, got %d", calls)
	}
}

func TestFetch_ErrorLeavesCacheUntouched(t *testing.T) {
	c, _ := newTestCache(10)
	key := NewKey("requests", "detail", "1")
	c.SetQueryData(key, func(interface{}) interface{} { return "old" })
	c.Invalidate(key)

	boom := errors.New("boom")
	_, err := c.Fetch(context.Background(), key, Options{StaleTime: time.Minute}, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if v, ok := c.Get(key); !ok || v != "old" {
		t.Errorf("expected previous value kept, got %v %v", v, ok)
	}
}

func TestFetch_ConcurrentCallsShareOneFetch(t *testing.T) {
	c, _ := newTestCache(10)
	key := NewKey("dashboard", "kpi", "2024-01-01..2024-01-31")
	release := make(chan struct{})
	var calls int32

	fn := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "kpis", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Fetch(context.Background(), key, Options{StaleTime: time.Minute}, fn)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected one shared fetch, got %d", calls)
	}
	for i, r := range results {
		if r != "kpis" {
			t.Errorf("result %d: %v", i, r)
		}
	}
}

func TestTypedFetch(t *testing.T) {
	c, _ := newTestCache(10)
	n, err := Fetch(context.Background(), c, NewKey("n"), Options{StaleTime: time.Minute}, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || n != 7 {
		t.Fatalf("unexpected %d %v", n, err)
	}

	c.SetQueryData(NewKey("s"), func(interface{}) interface{} { return "text" })
	c.Invalidate(NewKey("s"))
	_, err = Fetch(context.Background(), c, NewKey("s"), Options{StaleTime: time.Minute}, func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInvalidate_PrefixMarksStale(t *testing.T) {
	c, _ := newTestCache(10)
	opts := Options{StaleTime: time.Hour}
	var calls int32
	keys := []Key{
		NewKey("requests", "paginated-list", "", "1", "10", "all", "all"),
		NewKey("requests", "detail", "1"),
		NewKey("drivers", "recent"),
	}
	for _, k := range keys {
		c.Fetch(context.Background(), k, opts, counter(&calls, "v"))
	}

	if n := c.Invalidate(NewKey("requests")); n != 2 {
		t.Errorf("expected 2 invalidated, got %d", n)
	}
	for _, k := range keys {
		c.Fetch(context.Background(), k, opts, counter(&calls, "v"))
	}
	if calls != 5 {
		t.Errorf("expected 2 refetches, got %d total calls", calls)
	}
}

func TestRemove_DiscardsLateResult(t *testing.T) {
	c, _ := newTestCache(10)
	key := NewKey("requests", "detail", "9")
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		v, err := c.Fetch(context.Background(), key, Options{StaleTime: time.Minute}, func(context.Context) (interface{}, error) {
			close(started)
			<-release
			return "late", nil
		})
		if err != nil || v != "late" {
			t.Errorf("caller should still get its result, got %v %v", v, err)
		}
	}()

	<-started
	c.Remove(NewKey("requests", "detail"))
	close(release)
	<-done

	if _, ok := c.Get(key); ok {
		t.Error("late result for removed key must not be stored")
	}
	if got := c.GetStats()["discarded"]; got != int64(1) {
		t.Errorf("expected 1 discarded, got %v", got)
	}
}

func TestInvalidate_FetchDuringFlightDoesNotJoinIt(t *testing.T) {
	c, _ := newTestCache(10)
	key := NewKey("requests", "paginated-list", "", "1", "10", "all", "all")
	opts := Options{StaleTime: time.Minute}
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.Fetch(context.Background(), key, opts, func(context.Context) (interface{}, error) {
			close(started)
			<-release
			return "before-mutation", nil
		})
	}()

	<-started
	c.Invalidate(NewKey("requests"))

	v, err := c.Fetch(context.Background(), key, opts, func(context.Context) (interface{}, error) {
		return "after-mutation", nil
	})
	if err != nil || v != "after-mutation" {
		t.Fatalf("fetch after invalidate returned %v %v", v, err)
	}

	close(release)
	<-done

	if got, _ := c.Get(key); got != "after-mutation" {
		t.Errorf("late pre-mutation result overwrote the entry: %v", got)
	}
}

func TestFetch_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	c, _ := newTestCache(10)
	key := NewKey("dashboard", "kpis", "2024-03-01_2024-03-07")
	opts := Options{StaleTime: time.Minute}
	started := make(chan struct{})
	release := make(chan struct{})

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Fetch(firstCtx, key, opts, func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return "kpis", ctx.Err()
		})
		firstErr <- err
	}()
	<-started

	second := make(chan interface{}, 1)
	go func() {
		v, err := c.Fetch(context.Background(), key, opts, func(context.Context) (interface{}, error) {
			return "second", nil
		})
		if err != nil {
			t.Errorf("joined caller failed: %v", err)
		}
		second <- v
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller should stop waiting, got %v", err)
	}
	close(release)

	if v := <-second; v != "kpis" && v != "second" {
		t.Errorf("unexpected value %v", v)
	}
	if got, _ := c.Get(key); got != "kpis" && got != "second" {
		t.Errorf("shared fetch should be cached, got %v", got)
	}
}

func TestSetQueryData(t *testing.T) {
	c, _ := newTestCache(10)
	key := NewKey("drivers", "recent")

	c.SetQueryData(key, func(old interface{}) interface{} {
		if old != nil {
			t.Errorf("expected nil old value, got %v", old)
		}
		return nil
	})
	if c.Len() != 0 {
		t.Error("nil updater result must not create an entry")
	}

	c.SetQueryData(key, func(interface{}) interface{} { return []string{"a"} })
	c.SetQueryData(key, func(old interface{}) interface{} {
		return append([]string{"b"}, old.([]string)...)
	})
	v, _ := c.Get(key)
	if got := v.([]string); len(got) != 2 || got[0] != "b" {
		t.Errorf("unexpected value %v", got)
	}
}

func TestSweepDropsUnusedEntries(t *testing.T) {
	c, clk := newTestCache(10)
	var calls int32
	c.Fetch(context.Background(), NewKey("short"), Options{StaleTime: time.Minute, GCTime: 2 * time.Minute}, counter(&calls, "a"))
	c.Fetch(context.Background(), NewKey("long"), Options{StaleTime: time.Minute, GCTime: 30 * time.Minute}, counter(&calls, "b"))

	clk.Advance(3 * time.Minute)
	if n := c.Sweep(); n != 1 {
		t.Errorf("expected 1 swept, got %d", n)
	}
	if _, ok := c.Get(NewKey("long")); !ok {
		t.Error("entry within gc time should survive")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c, clk := newTestCache(2)
	opts := Options{StaleTime: time.Hour}
	var calls int32

	c.Fetch(context.Background(), NewKey("a"), opts, counter(&calls, "a"))
	clk.Advance(time.Second)
	c.Fetch(context.Background(), NewKey("b"), opts, counter(&calls, "b"))
	clk.Advance(time.Second)
	c.Fetch(context.Background(), NewKey("a"), opts, counter(&calls, "a"))
	clk.Advance(time.Second)
	c.Fetch(context.Background(), NewKey("c"), opts, counter(&calls, "c"))

	if _, ok := c.Get(NewKey("b")); ok {
		t.Error("expected b to be evicted")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}

	stats := c.GetStats()
	if stats["evictions"] != int64(1) || stats["hits"] != int64(1) || stats["misses"] != int64(3) {
		t.Errorf("unexpected stats %v", stats)
	}
	if stats["hit_rate"] != "25.00%" {
		t.Errorf("unexpected hit rate %v", stats["hit_rate"])
	}
}

func TestOnInvalidateListeners(t *testing.T) {
	c, _ := newTestCache(10)
	var got []string
	c.OnInvalidate(func(prefix Key) { got = append(got, prefix.String()) })

	c.Invalidate(NewKey("drivers"))
	c.Remove(NewKey("requests", "detail", "3"))

	if len(got) != 2 || got[0] != "drivers" || got[1] != "requests/detail/3" {
		t.Errorf("unexpected notifications %v", got)
	}
}
