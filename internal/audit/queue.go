package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
)

// Recorder accepts audit entries without reporting failures to the caller.
type Recorder interface {
	Record(threadID string, logType domain.LogType, data any)
}

const queueWriteTimeout = 10 * time.Second

type queuedEntry struct {
	threadID string
	logType  domain.LogType
	data     any
}

// Queue writes audit entries on a background goroutine so request handlers
// never wait on the document store.
type Queue struct {
	logger  *Logger
	entries chan queuedEntry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts a queue writer with room for size pending entries.
func NewQueue(logger *Logger, size int) *Queue {
	if size <= 0 {
		size = 256
	}
	q := &Queue{
		logger:  logger,
		entries: make(chan queuedEntry, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Record enqueues an entry. Entries are dropped when the logger is disabled,
// the queue is full, or the queue is closed.
func (q *Queue) Record(threadID string, logType domain.LogType, data any) {
	if !q.logger.Enabled() {
		return
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.entries <- queuedEntry{threadID: threadID, logType: logType, data: data}:
	default:
		slog.Warn("Audit queue full, dropping entry", "thread_id", threadID, "log_type", logType)
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for e := range q.entries {
		ctx, cancel := context.WithTimeout(context.Background(), queueWriteTimeout)
		q.logger.StoreLog(ctx, e.threadID, e.logType, e.data)
		cancel()
	}
}

// Close stops accepting entries and waits for pending writes.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.entries)
	q.mu.Unlock()
	<-q.done
}
