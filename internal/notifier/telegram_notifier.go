// internal/notifier/telegram_notifier.go
package notifier

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nastiakostenyuk/alert-server-v1/internal/config"
)

// TelegramNotifier отправляет уведомления в Telegram-группу через Bot API
type TelegramNotifier struct {
	httpClient *http.Client
	apiURL     string
	chatID     int64
	enabled    bool
}

// NewTelegramNotifier создает Telegram нотификатор.
// Возвращает nil, если токен или chat id не заданы.
func NewTelegramNotifier(cfg *config.Config) *TelegramNotifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return nil
	}

	return &TelegramNotifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", cfg.TelegramToken),
		chatID:     cfg.TelegramChatID,
		enabled:    true,
	}
}

// Send отправляет текст в группу
func (t *TelegramNotifier) Send(text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(t.chatID, 10))
	params.Set("text", text)

	resp, err := t.httpClient.Get(t.apiURL + "?" + params.Encode())
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram status code: %d", resp.StatusCode)
	}

	return nil
}

// Name возвращает имя
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// IsEnabled возвращает статус
func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

// SetEnabled включает/выключает
func (t *TelegramNotifier) SetEnabled(enabled bool) {
	t.enabled = enabled
}
