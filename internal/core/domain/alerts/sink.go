// internal/core/domain/alerts/sink.go
package alerts

import (
	"time"

	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

// AlertRepository — durable-хранилище алертов
type AlertRepository interface {
	Save(symbol string, dateTime time.Time) error
}

// Broadcaster — очередь рассылки живым подписчикам
type Broadcaster interface {
	HasSubscribers() bool
	Enqueue(payload types.AlertPayload)
}

// FallbackNotifier — резервный канал уведомлений (ошибки не пробрасываются)
type FallbackNotifier interface {
	Send(text string)
}

// Sink фиксирует положительное срабатывание: сначала алерт durable-сохраняется
// в БД (от этого зависит корректность кулдауна), затем либо ставится в очередь
// рассылки, либо — если живых подписчиков нет — уходит в резервный канал.
// Строго либо-либо: резервный канал срабатывает только при нуле подписчиков
// на момент постановки в очередь.
type Sink struct {
	repository  AlertRepository
	broadcaster Broadcaster
	fallback    FallbackNotifier
}

// NewSink создает sink алертов
func NewSink(repository AlertRepository, broadcaster Broadcaster, fallback FallbackNotifier) *Sink {
	return &Sink{
		repository:  repository,
		broadcaster: broadcaster,
		fallback:    fallback,
	}
}

// Emit сохраняет и рассылает алерт по символу.
// Ошибка сохранения означает, что алерт не считается отправленным:
// следующее подходящее срабатывание попробует снова.
func (s *Sink) Emit(symbol string, candle types.Candle) {
	if err := s.repository.Save(symbol, candle.OpenedAt()); err != nil {
		logger.Error("❌ Sink: не удалось сохранить алерт %s, отправка отменена: %v", symbol, err)
		return
	}

	if s.broadcaster.HasSubscribers() {
		s.broadcaster.Enqueue(types.AlertPayload{Symbol: symbol})
	} else {
		s.fallback.Send(symbol)
	}
}
