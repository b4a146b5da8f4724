// internal/delivery/wsserver/queue.go
package wsserver

import (
	"sync"

	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

// PendingQueue — ограниченная FIFO-очередь алертов, ожидающих рассылки.
// Производитель — sink алертов, потребители — циклы соединений релея.
// При переполнении вытесняется самый старый алерт: свежий алерт ценнее
// устаревшего, а расти без предела очередь не должна.
type PendingQueue struct {
	mu      sync.Mutex
	items   []types.AlertPayload
	maxSize int
	dropped uint64
}

// NewPendingQueue создает очередь с заданным пределом
func NewPendingQueue(maxSize int) *PendingQueue {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &PendingQueue{maxSize: maxSize}
}

// Push добавляет алерт в хвост очереди
func (q *PendingQueue) Push(payload types.AlertPayload) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxSize {
		q.dropped++
		logger.Warn("⚠️ PendingQueue: очередь полна, вытеснен алерт %s (потеряно всего: %d)",
			q.items[0].Symbol, q.dropped)
		q.items = q.items[1:]
	}

	q.items = append(q.items, payload)
}

// Pop достаёт самый старый алерт из очереди
func (q *PendingQueue) Pop() (types.AlertPayload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return types.AlertPayload{}, false
	}

	payload := q.items[0]
	q.items = q.items[1:]
	return payload, true
}

// Len возвращает текущую длину очереди
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
