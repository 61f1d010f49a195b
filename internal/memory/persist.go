package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

// Persister is the optional durable store behind the cache. Every call is
// best-effort: failures are logged and the in-memory state stays
// authoritative.
type Persister interface {
	Persist(ctx context.Context, e *models.CacheEntry) error
	Delete(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]*models.CacheEntry, error)
	Ping(ctx context.Context) error
}

const (
	defaultQueueSize = 1024
	persistTimeout   = 5 * time.Second
)

type persistOp struct {
	entry    *models.CacheEntry
	deleteID string
}

// persistQueue drains writes to a Persister on one worker goroutine. A full
// queue drops the write.
type persistQueue struct {
	persister Persister
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	ops    chan persistOp
	done   chan struct{}
}

func newPersistQueue(p Persister, size int, logger *slog.Logger) *persistQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	q := &persistQueue{
		persister: p,
		logger:    logger,
		ops:       make(chan persistOp, size),
		done:      make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *persistQueue) run() {
	defer close(q.done)
	for op := range q.ops {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if op.entry != nil {
			if err := q.persister.Persist(ctx, op.entry); err != nil {
				q.logger.Warn("persist entry failed", "id", op.entry.ID, "error", err)
			}
		} else if err := q.persister.Delete(ctx, op.deleteID); err != nil {
			q.logger.Warn("delete persisted entry failed", "id", op.deleteID, "error", err)
		}
		cancel()
	}
}

func (q *persistQueue) enqueue(op persistOp) {
	if q == nil {
		return
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.ops <- op:
	default:
		id := op.deleteID
		if op.entry != nil {
			id = op.entry.ID
		}
		q.logger.Warn("persistence queue full, dropping write", "id", id)
	}
}

// persist enqueues a snapshot of e.
func (q *persistQueue) persist(e *models.CacheEntry) {
	if q == nil {
		return
	}
	q.enqueue(persistOp{entry: e.Clone()})
}

func (q *persistQueue) remove(id string) {
	q.enqueue(persistOp{deleteID: id})
}

// close stops accepting writes and waits for queued ones to finish.
func (q *persistQueue) close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ops)
	q.mu.Unlock()
	<-q.done
}
