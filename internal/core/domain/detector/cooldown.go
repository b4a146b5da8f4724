// internal/core/domain/detector/cooldown.go
package detector

import (
	"fmt"
	"time"

	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

// LastAlert — последний сохранённый алерт по символу
type LastAlert struct {
	ID       int64
	Symbol   string
	DateTime time.Time
}

// AlertHistory — доступ к истории алертов в БД.
// FindLastBySymbol возвращает nil без ошибки, если алертов по символу не было.
type AlertHistory interface {
	FindLastBySymbol(symbol string) (*LastAlert, error)
}

// CooldownGate проверяет, прошло ли достаточно времени с последнего алерта.
// Каждый вызов читает историю из БД — без кэширования, чтобы всегда видеть
// последнее зафиксированное состояние.
type CooldownGate struct {
	history AlertHistory
	minutes int
}

// NewCooldownGate создает шлюз кулдауна
func NewCooldownGate(history AlertHistory, minutes int) *CooldownGate {
	return &CooldownGate{history: history, minutes: minutes}
}

// HasElapsed возвращает true, если по символу ещё не было алертов либо
// время последней свечи не раньше времени предыдущего алерта плюс кулдаун.
// Ошибка чтения истории трактуется как несработавшая проверка: лучше
// пропустить алерт, чем продублировать его внутри кулдауна.
func (g *CooldownGate) HasElapsed(symbol string, lastCandleTime time.Time) CheckResult {
	last, err := g.history.FindLastBySymbol(symbol)
	if err != nil {
		logger.Error("❌ CooldownGate: ошибка чтения истории алертов %s: %v", symbol, err)
		return CheckResult{
			Passed: false,
			Detail: fmt.Sprintf("alert history lookup failed: %v", err),
		}
	}

	if last == nil {
		return CheckResult{
			Passed: true,
			Detail: fmt.Sprintf("time new kline: %s, no previous alert", lastCandleTime.Format(time.RFC3339)),
		}
	}

	threshold := last.DateTime.Add(time.Duration(g.minutes) * time.Minute)
	passed := !lastCandleTime.Before(threshold)

	return CheckResult{
		Passed: passed,
		Detail: fmt.Sprintf("time new kline: %s > last_alert: %s for %d minutes",
			lastCandleTime.Format(time.RFC3339), last.DateTime.Format(time.RFC3339), g.minutes),
	}
}
