package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mailroom/inbox-system/internal/api/metrics"
	"github.com/mailroom/inbox-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// HasherPool wraps a ports.CredentialHasher and executes its CPU-bound work
// on a fixed set of workers, so one slow verification cannot stall unrelated
// concurrent requests. Verifications are sharded by the stored hash, which
// serializes concurrent attempts against a single account while other
// accounts proceed in parallel.
type HasherPool struct {
	inner   ports.CredentialHasher
	workers []chan func()
	log     zerolog.Logger
	ctx     context.Context
	next    atomic.Uint64
	started atomic.Bool
}

// NewHasherPool creates a HasherPool with numWorkers workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewHasherPool(numWorkers int, inner ports.CredentialHasher, log zerolog.Logger) *HasherPool {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	p := &HasherPool{
		inner:   inner,
		workers: make([]chan func(), numWorkers),
		log:     log,
	}
	for i := range p.workers {
		p.workers[i] = make(chan func(), channelBuffer)
	}
	return p
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// and the pool falls back to inline execution from then on.
func (p *HasherPool) Start(ctx context.Context) {
	p.ctx = ctx
	for i, ch := range p.workers {
		go p.runWorker(ctx, i, ch)
	}
	p.started.Store(true)
	go func() {
		<-ctx.Done()
		p.started.Store(false)
		p.log.Info().Msg("hasher pool stopped")
	}()
	p.log.Info().Int("workers", len(p.workers)).Msg("hasher pool started")
}

// Hash computes a credential hash on the pool, distributing calls round-robin.
func (p *HasherPool) Hash(plaintext string) (string, error) {
	type result struct {
		hash string
		err  error
	}
	out := make(chan result, 1)
	p.submit(int(p.next.Add(1))%len(p.workers), "hash", func() {
		h, err := p.inner.Hash(plaintext)
		out <- result{hash: h, err: err}
	})
	r := <-out
	return r.hash, r.err
}

// Verify checks plaintext against hash on the worker owning the hash's shard.
func (p *HasherPool) Verify(plaintext, hash string) bool {
	out := make(chan bool, 1)
	p.submit(p.shardIndex(hash), "verify", func() {
		out <- p.inner.Verify(plaintext, hash)
	})
	return <-out
}

// DummyHash passes through; it costs nothing to produce.
func (p *HasherPool) DummyHash() string {
	return p.inner.DummyHash()
}

// submit enqueues the job on worker i, or runs it inline when the pool is
// not running (tests, early startup, after shutdown). Enqueueing races with
// cancellation, so the send itself also selects on ctx: a caller must never
// block on a channel no worker will drain.
func (p *HasherPool) submit(i int, op string, job func()) {
	if !p.started.Load() {
		job()
		return
	}
	metrics.HashQueueDepth.WithLabelValues(strconv.Itoa(i)).Inc()
	wrapped := func() {
		metrics.HashQueueDepth.WithLabelValues(strconv.Itoa(i)).Dec()
		start := time.Now()
		job()
		metrics.HashDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	select {
	case p.workers[i] <- wrapped:
	case <-p.ctx.Done():
		metrics.HashQueueDepth.WithLabelValues(strconv.Itoa(i)).Dec()
		job()
	}
}

// shardIndex maps a stored hash deterministically to a worker index.
func (p *HasherPool) shardIndex(hash string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(hash))
	return int(h.Sum32()) % len(p.workers)
}

func (p *HasherPool) runWorker(ctx context.Context, id int, ch <-chan func()) {
	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Int("worker_id", id).Msg("hasher worker stopped")
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			job()
		}
	}
}
