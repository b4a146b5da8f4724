// internal/notifier/notification_service.go
package notifier

import (
	"sync"
	"time"

	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

// Notifier интерфейс отдельного нотификатора
type Notifier interface {
	Send(text string) error
	Name() string
	IsEnabled() bool
	SetEnabled(bool)
}

// CompositeNotificationService — резервный канал уведомлений.
// Рассылает текст через все включённые нотификаторы; ошибки отдельных
// каналов логируются и никогда не пробрасываются вызывающему коду.
type CompositeNotificationService struct {
	notifiers []Notifier
	enabled   bool
	mu        sync.RWMutex
	stats     map[string]interface{}
}

// NewCompositeNotificationService создает композитный сервис
func NewCompositeNotificationService() *CompositeNotificationService {
	return &CompositeNotificationService{
		notifiers: make([]Notifier, 0),
		enabled:   true,
		stats: map[string]interface{}{
			"total_sent":     0,
			"successful":     0,
			"failed":         0,
			"last_sent_time": time.Time{},
		},
	}
}

// AddNotifier добавляет нотификатор
func (c *CompositeNotificationService) AddNotifier(n Notifier) {
	if n == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifiers = append(c.notifiers, n)
}

// Send отправляет текст через все нотификаторы
func (c *CompositeNotificationService) Send(text string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.notifiers {
		if !n.IsEnabled() {
			continue
		}

		c.stats["total_sent"] = c.stats["total_sent"].(int) + 1
		if err := n.Send(text); err != nil {
			logger.Error("❌ Ошибка отправки через %s: %v", n.Name(), err)
			c.stats["failed"] = c.stats["failed"].(int) + 1
		} else {
			c.stats["successful"] = c.stats["successful"].(int) + 1
			c.stats["last_sent_time"] = time.Now()
		}
	}
}

// SetEnabled включает/выключает сервис целиком
func (c *CompositeNotificationService) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// GetStats возвращает статистику отправок
func (c *CompositeNotificationService) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]interface{}, len(c.stats))
	for k, v := range c.stats {
		result[k] = v
	}
	return result
}
