package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLoader_InvalidConfig(t *testing.T) {
	if _, err := NewLoader[string, int](0, func(context.Context, string) (int, error) { return 0, nil }); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("capacity 0: err = %v, want ErrInvalidCapacity", err)
	}
	if _, err := NewLoader[string, int](1, nil); err == nil {
		t.Error("nil fetch: expected an error")
	}
}

func TestLoader_FetchesOnceThenCaches(t *testing.T) {
	var fetches atomic.Int64
	l, err := NewLoader[string, string](4, func(_ context.Context, key string) (string, error) {
		fetches.Add(1)
		return "value-for-" + key, nil
	})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, err := l.Get(ctx, "user:42")
		if err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
		if v != "value-for-user:42" {
			t.Fatalf("Get #%d = %q", i, v)
		}
	}

	if n := fetches.Load(); n != 1 {
		t.Errorf("backing store fetched %d times, want 1", n)
	}
	if s := l.Stats(); s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 2/1", s.Hits, s.Misses)
	}
}

func TestLoader_CollapsesConcurrentMisses(t *testing.T) {
	var fetches atomic.Int64
	release := make(chan struct{})

	l, err := NewLoader[string, int](4, func(_ context.Context, key string) (int, error) {
		fetches.Add(1)
		<-release // hold the flight open until all callers have joined
		return 7, nil
	})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	const callers = 5
	var started, done sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], errs[i] = l.Get(context.Background(), "shared")
		}(i)
	}

	started.Wait()
	close(release)
	done.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != 7 {
			t.Fatalf("caller %d got %d, want 7", i, results[i])
		}
	}

	// Every caller that raced the first flight shares it; stragglers that
	// arrived after completion hit the cache instead. Either way the backing
	// fetch must not run once per caller.
	if n := fetches.Load(); n >= callers {
		t.Errorf("backing store fetched %d times for %d concurrent callers", n, callers)
	}
}

// Distinct struct keys can have identical fmt formatting. An in-flight fetch
// for one of them must never be joined by a lookup for the other.
func TestLoader_DistinctKeysDoNotShareFlights(t *testing.T) {
	type pair struct{ a, b string }
	k1 := pair{"a", "b c"}
	k2 := pair{"a b", "c"} // fmt.Sprint(k1) == fmt.Sprint(k2)

	entered := make(chan struct{})
	release := make(chan struct{})

	l, err := NewLoader[pair, string](4, func(_ context.Context, k pair) (string, error) {
		if k == k1 {
			close(entered)
			<-release
		}
		return "value-for-" + k.a + "|" + k.b, nil
	})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	ctx := context.Background()
	var got1 string
	var err1 error
	done := make(chan struct{})
	go func() {
		defer close(done)
		got1, err1 = l.Get(ctx, k1)
	}()

	// With the fetch for k1 held open, a lookup for k2 must complete on its
	// own flight instead of waiting on (and receiving) k1's result.
	<-entered
	got2, err := l.Get(ctx, k2)
	if err != nil {
		t.Fatalf("Get(k2): %v", err)
	}
	if want := "value-for-a b|c"; got2 != want {
		t.Fatalf("Get(k2) = %q, want %q", got2, want)
	}

	close(release)
	<-done
	if err1 != nil {
		t.Fatalf("Get(k1): %v", err1)
	}
	if want := "value-for-a|b c"; got1 != want {
		t.Errorf("Get(k1) = %q, want %q", got1, want)
	}
}

func TestLoader_ErrorNotCached(t *testing.T) {
	boom := errors.New("backing store down")
	var fetches atomic.Int64

	l, err := NewLoader[string, int](4, func(_ context.Context, key string) (int, error) {
		if fetches.Add(1) == 1 {
			return 0, boom
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	ctx := context.Background()
	if _, err := l.Get(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("first Get: err = %v, want %v", err, boom)
	}

	// The failure was not cached: the next Get retries the fetch.
	v, err := l.Get(ctx, "k")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if v != 42 {
		t.Errorf("second Get = %d, want 42", v)
	}
	if n := fetches.Load(); n != 2 {
		t.Errorf("backing store fetched %d times, want 2", n)
	}
}

func TestLoader_Invalidate(t *testing.T) {
	var fetches atomic.Int64
	l, err := NewLoader[int, string](4, func(_ context.Context, key int) (string, error) {
		return fmt.Sprintf("v%d-%d", key, fetches.Add(1)), nil
	})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	ctx := context.Background()
	first, err := l.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if !l.Invalidate(1) {
		t.Error("expected Invalidate to report the key as present")
	}
	if l.Invalidate(1) {
		t.Error("expected second Invalidate to report absence")
	}

	second, err := l.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if first == second {
		t.Errorf("expected a fresh fetch after invalidate, got %q twice", first)
	}
}

func TestLoader_RespectsCapacity(t *testing.T) {
	l, err := NewLoader[int, int](2, func(_ context.Context, key int) (int, error) {
		return key * 10, nil
	})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	ctx := context.Background()
	for k := 1; k <= 5; k++ {
		if _, err := l.Get(ctx, k); err != nil {
			t.Fatalf("Get(%d): %v", k, err)
		}
	}

	s := l.Stats()
	if s.Len != 2 {
		t.Errorf("Len = %d, want 2", s.Len)
	}
	if s.Evictions != 3 {
		t.Errorf("Evictions = %d, want 3", s.Evictions)
	}
}
