// Package gate serializes and throttles outbound indexer traffic. The
// Limiter enforces global and per-indexer request spacing; the SearchQueue
// serializes whole logical searches on top of it.
package gate

import (
	"context"
	"sync"
	"time"
)

// fifoMutex is a mutual-exclusion lock that releases blocked callers in
// arrival order. The first blocked caller is the first released.
type fifoMutex struct {
	mu      sync.Mutex
	waiters []chan struct{}
	busy    bool
}

func (m *fifoMutex) lock(ctx context.Context) error {
	m.mu.Lock()
	if !m.busy {
		m.busy = true
		m.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, w := range m.waiters {
			if w == ch {
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				m.mu.Unlock()
				return ctx.Err()
			}
		}
		m.mu.Unlock()
		// The lock was handed to us concurrently with cancellation;
		// give it back before reporting the error.
		m.unlock()
		return ctx.Err()
	}
}

func (m *fifoMutex) unlock() {
	m.mu.Lock()
	if len(m.waiters) > 0 {
		ch := m.waiters[0]
		m.waiters = m.waiters[1:]
		close(ch) // ownership transfers, busy stays true
	} else {
		m.busy = false
	}
	m.mu.Unlock()
}

// Limiter throttles indexer requests: a global minimum spacing across all
// indexers and a larger per-indexer minimum spacing. The wait and the
// timestamp update happen inside one critical section so two callers can
// never both observe "not yet due" and proceed.
type Limiter struct {
	gate        fifoMutex
	globalGap   time.Duration
	indexerGap  time.Duration
	globalLast  time.Time
	indexerLast map[uint64]time.Time
}

// NewLimiter creates a limiter with the given global and per-indexer
// minimum request spacing.
func NewLimiter(globalGap, indexerGap time.Duration) *Limiter {
	return &Limiter{
		globalGap:   globalGap,
		indexerGap:  indexerGap,
		indexerLast: make(map[uint64]time.Time),
	}
}

// AcquireSlot blocks until it is safe to issue a request to the indexer,
// then stamps the dispatch time and returns. Callers are released in FIFO
// order. Context cancellation aborts the wait.
func (l *Limiter) AcquireSlot(ctx context.Context, indexerID uint64) error {
	if err := l.gate.lock(ctx); err != nil {
		return err
	}
	defer l.gate.unlock()

	now := time.Now()
	var wait time.Duration
	if due := l.globalLast.Add(l.globalGap); due.After(now) {
		wait = due.Sub(now)
	}
	if last, ok := l.indexerLast[indexerID]; ok {
		if due := last.Add(l.indexerGap); due.After(now) && due.Sub(now) > wait {
			wait = due.Sub(now)
		}
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	now = time.Now()
	l.globalLast = now
	l.indexerLast[indexerID] = now
	return nil
}

// SearchQueue serializes whole logical searches (one search fans out to N
// indexers) so only one runs at a time system-wide, with a floor between
// the starts of consecutive searches. It is independent of the Limiter.
type SearchQueue struct {
	gate      fifoMutex
	startGap  time.Duration
	lastStart time.Time
}

// NewSearchQueue creates a search queue with the given start-to-start floor.
func NewSearchQueue(startGap time.Duration) *SearchQueue {
	return &SearchQueue{startGap: startGap}
}

// Do runs fn as one logical search. It blocks until no other search is
// running and the start floor has elapsed, in FIFO order.
func (q *SearchQueue) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := q.gate.lock(ctx); err != nil {
		return err
	}
	defer q.gate.unlock()

	now := time.Now()
	if due := q.lastStart.Add(q.startGap); due.After(now) {
		timer := time.NewTimer(due.Sub(now))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.lastStart = time.Now()

	return fn(ctx)
}
