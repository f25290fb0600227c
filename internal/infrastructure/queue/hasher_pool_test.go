package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingHasher struct {
	mu       sync.Mutex
	hashes   int
	verifies int
}

func (h *countingHasher) Hash(plaintext string) (string, error) {
	h.mu.Lock()
	h.hashes++
	h.mu.Unlock()
	return "hashed:" + plaintext, nil
}

func (h *countingHasher) Verify(plaintext, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return hash == "hashed:"+plaintext
}

func (h *countingHasher) DummyHash() string {
	return "hashed:\x00dummy"
}

func TestHasherPool_InlineBeforeStart(t *testing.T) {
	inner := &countingHasher{}
	pool := NewHasherPool(2, inner, zerolog.Nop())

	// Not started: jobs run on the caller's goroutine.
	hash, err := pool.Hash("pw")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !pool.Verify("pw", hash) {
		t.Fatalf("Verify rejected its own hash")
	}
	if inner.hashes != 1 || inner.verifies != 1 {
		t.Fatalf("inner calls hash=%d verify=%d, expected 1/1", inner.hashes, inner.verifies)
	}
}

func TestHasherPool_Started(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := &countingHasher{}
	pool := NewHasherPool(3, inner, zerolog.Nop())
	pool.Start(ctx)

	hash, err := pool.Hash("pw")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash != "hashed:pw" {
		t.Fatalf("unexpected hash: %s", hash)
	}
	if !pool.Verify("pw", hash) {
		t.Fatalf("Verify rejected matching credentials")
	}
	if pool.Verify("other", hash) {
		t.Fatalf("Verify accepted wrong credentials")
	}
}

func TestHasherPool_ConcurrentVerify(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := &countingHasher{}
	pool := NewHasherPool(4, inner, zerolog.Nop())
	pool.Start(ctx)

	const n = 32
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = pool.Verify("pw", "hashed:pw")
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Fatalf("verification %d failed", i)
		}
	}
	if inner.verifies != n {
		t.Fatalf("inner verify calls %d, expected %d", inner.verifies, n)
	}
}

func TestHasherPool_NoBlockAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	inner := &countingHasher{}
	pool := NewHasherPool(2, inner, zerolog.Nop())
	pool.Start(ctx)
	cancel()

	// Well past the channel capacity: with the workers gone, every call must
	// still return instead of blocking on a full queue.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4*channelBuffer; i++ {
			if _, err := pool.Hash("pw"); err != nil {
				t.Errorf("Hash returned error: %v", err)
				return
			}
			if !pool.Verify("pw", "hashed:pw") {
				t.Errorf("Verify rejected matching credentials")
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("hashing blocked after pool shutdown")
	}
}

func TestHasherPool_ShardStableForHash(t *testing.T) {
	pool := NewHasherPool(4, &countingHasher{}, zerolog.Nop())

	// Same stored hash always lands on the same worker.
	first := pool.shardIndex("hashed:pw")
	for i := 0; i < 10; i++ {
		if got := pool.shardIndex("hashed:pw"); got != first {
			t.Fatalf("shard changed: %d vs %d", got, first)
		}
	}
	if first < 0 || first >= 4 {
		t.Fatalf("shard %d out of range", first)
	}
}

func TestHasherPool_DummyHashPassthrough(t *testing.T) {
	inner := &countingHasher{}
	pool := NewHasherPool(0, inner, zerolog.Nop())

	if pool.DummyHash() != inner.DummyHash() {
		t.Fatalf("dummy hash not passed through")
	}
	if len(pool.workers) != defaultWorkers {
		t.Fatalf("worker count %d, expected default %d", len(pool.workers), defaultWorkers)
	}
}
