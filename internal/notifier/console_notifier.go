// internal/notifier/console_notifier.go
package notifier

import (
	"log"
)

// ConsoleNotifier нотификатор для консоли
type ConsoleNotifier struct {
	enabled bool
}

// NewConsoleNotifier создает консольный нотификатор
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{enabled: true}
}

// Send отправляет текст в консоль
func (c *ConsoleNotifier) Send(text string) error {
	if !c.enabled {
		return nil
	}

	log.Printf("🔔 УВЕДОМЛЕНИЕ: %s", text)
	return nil
}

// Name возвращает имя
func (c *ConsoleNotifier) Name() string {
	return "console"
}

// IsEnabled возвращает статус
func (c *ConsoleNotifier) IsEnabled() bool {
	return c.enabled
}

// SetEnabled включает/выключает
func (c *ConsoleNotifier) SetEnabled(enabled bool) {
	c.enabled = enabled
}
