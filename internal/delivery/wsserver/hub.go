// internal/delivery/wsserver/hub.go
package wsserver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// transport — исходящий канал к одному подписчику.
// Реальная реализация оборачивает websocket-соединение; в тестах подменяется.
type transport interface {
	WriteJSON(ctx context.Context, v interface{}) error
	Close() error
}

// subscriber — живое соединение подписчика с меткой последнего пинга.
// lastPing читает и пишет только цикл самого соединения.
type subscriber struct {
	id        string
	transport transport
	lastPing  time.Time
}

// Hub — потокобезопасный набор живых соединений.
// Доставка идёт по снапшоту, удаление — отдельной синхронизированной
// операцией, чтобы не мутировать набор во время обхода.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

// NewHub создает пустой набор соединений
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*subscriber)}
}

// Add регистрирует новое соединение
func (h *Hub) Add(t transport) *subscriber {
	sub := &subscriber{
		id:        uuid.New().String(),
		transport: t,
		lastPing:  time.Now(),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	return sub
}

// Remove убирает соединение из набора. Возвращает false, если соединение
// уже было удалено другим циклом.
func (h *Hub) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.subscribers[id]; !exists {
		return false
	}
	delete(h.subscribers, id)
	return true
}

// Snapshot возвращает срез текущих соединений для обхода
func (h *Hub) Snapshot() []*subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		result = append(result, sub)
	}
	return result
}

// Count возвращает число живых соединений
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
