package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"lrucache/cache"
)

func main() {
	// Signal-aware context is the root of ownership: when SIGINT/SIGTERM
	// arrives, ctx is canceled and in-flight loader fetches are abandoned.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Library logging is silent by default; raise it for the demo.
	cache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	log.Println("lrucache demo starting")

	// -------------------------------------------------------------------
	// 1) LRU eviction walkthrough (capacity=2)
	// -------------------------------------------------------------------
	c, err := cache.New[int, int](2)
	if err != nil {
		log.Fatalf("new cache: %v", err)
	}

	c.Put(1, 15)
	c.Put(2, 50)

	// Touch 1 so 2 becomes least recently used.
	if v, ok := c.Get(1); ok {
		log.Printf("GET 1 = %d (touches 1 -> MRU)", v)
	}

	// Insert 3 => cache overflows and evicts the LRU entry (expected: 2).
	c.Put(3, 99)
	if _, ok := c.Get(2); !ok {
		log.Println("GET 2: missing (evicted as LRU)")
	}
	log.Printf("keys after eviction (MRU->LRU): %v", c.Keys())
	log.Printf("stats: %+v", c.Stats())

	// -------------------------------------------------------------------
	// 2) Read-through loader demo (concurrent misses collapse to one fetch)
	// -------------------------------------------------------------------
	var fetches atomic.Int64
	loader, err := cache.NewLoader[uuid.UUID, string](8, func(ctx context.Context, id uuid.UUID) (string, error) {
		fetches.Add(1)
		// Simulate a slow backing lookup.
		select {
		case <-time.After(150 * time.Millisecond):
			return "profile-of-" + id.String(), nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	if err != nil {
		log.Fatalf("new loader: %v", err)
	}

	record := uuid.New()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			v, err := loader.Get(ctx, record)
			if err != nil {
				log.Printf("worker %d: %v", worker, err)
				return
			}
			log.Printf("worker %d got %s", worker, v)
		}(i)
	}
	wg.Wait()

	log.Printf("5 concurrent lookups, %d backing fetch(es)", fetches.Load())
	log.Printf("loader stats: %+v", loader.Stats())
}
