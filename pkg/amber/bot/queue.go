// Package bot – queue.go implements the asynchronous memory write queue.
// Persisting a memory involves an embedding call, so writes are queued and
// drained in the background instead of blocking the reply path. Failed
// items go to the back of the line and are retried with a backoff, up to a
// cap, then dropped with a log line.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amberlabs/amber/pkg/amber/bot/memory"
)

// ---------- Write queue ----------

const (
	defaultMaxRetries = 5
	defaultBackoff    = 5 * time.Second
)

// memoryItem is one pending memory write.
type memoryItem struct {
	Category string
	Content  string
	UserID   string
	Role     memory.Role
	Attempts int
}

// WriteQueue buffers memory writes and drains them in the background.
// At most one drain goroutine runs at a time.
type WriteQueue struct {
	store  memory.Store
	logger *slog.Logger

	// MaxRetries is how many attempts an item gets before being dropped.
	MaxRetries int
	// Backoff is the pause after a failed attempt.
	Backoff time.Duration

	mu       sync.Mutex
	items    []memoryItem
	draining bool
	wg       sync.WaitGroup
}

// NewWriteQueue returns a queue that persists items into store.
func NewWriteQueue(store memory.Store, logger *slog.Logger) *WriteQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteQueue{
		store:      store,
		logger:     logger.With("component", "memqueue"),
		MaxRetries: defaultMaxRetries,
		Backoff:    defaultBackoff,
	}
}

// Enqueue appends a write and starts a drain goroutine if none is running.
func (q *WriteQueue) Enqueue(category, content, userID string, role memory.Role) {
	q.mu.Lock()
	q.items = append(q.items, memoryItem{
		Category: category,
		Content:  content,
		UserID:   userID,
		Role:     role,
	})
	start := !q.draining
	if start {
		q.draining = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

// Pending returns the number of items waiting in the queue.
func (q *WriteQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wait blocks until the current drain (if any) has finished.
func (q *WriteQueue) Wait() {
	q.wg.Wait()
}

// drain pops items in FIFO order until the queue is empty. Failed items are
// re-appended to the back so one bad item cannot starve the rest.
func (q *WriteQueue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := q.store.Add(ctx, item.Content, item.UserID, item.Role)
		cancel()
		if err == nil {
			continue
		}

		item.Attempts++
		if item.Attempts >= q.MaxRetries {
			q.logger.Error("dropping memory after retries",
				"category", item.Category,
				"user", item.UserID,
				"attempts", item.Attempts,
				"error", err)
			continue
		}

		q.logger.Warn("memory write failed, requeueing",
			"category", item.Category,
			"user", item.UserID,
			"attempt", item.Attempts,
			"error", err)

		if q.Backoff > 0 {
			time.Sleep(q.Backoff)
		}

		q.mu.Lock()
		q.items = append(q.items, item)
		q.mu.Unlock()
	}
}
