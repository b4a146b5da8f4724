// internal/core/domain/window/store.go
package window

import (
	"sync"

	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
)

// Store — хранилище окон закрытых свечей: symbol -> ограниченная FIFO-история.
// Запись и чтение по одному символу сериализуются общим мьютексом, так что
// дублирующиеся события стрима не нарушают порядок вытеснения.
type Store struct {
	mu      sync.RWMutex
	windows map[string][]types.Candle
	maxSize int
}

// NewStore создает хранилище окон с заданной ёмкостью окна
func NewStore(maxSize int) *Store {
	if maxSize < 2 {
		// Защита от некорректной конфигурации: окно меньше двух свечей
		// не имеет смысла для проверок (нужна предпоследняя свеча)
		maxSize = 2
	}

	return &Store{
		windows: make(map[string][]types.Candle),
		maxSize: maxSize,
	}
}

// Ensure создает пустое окно для символа, если его ещё нет
func (s *Store) Ensure(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.windows[symbol]; !exists {
		s.windows[symbol] = make([]types.Candle, 0, s.maxSize)
	}
}

// RecordClosedCandle добавляет закрытую свечу в окно символа.
// При переполнении вытесняется самая старая свеча (строгий FIFO).
// Возвращает снапшот окна после вставки и признак заполненности.
func (s *Store) RecordClosedCandle(symbol string, candle types.Candle) ([]types.Candle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	win := append(s.windows[symbol], candle)
	if len(win) > s.maxSize {
		win = win[len(win)-s.maxSize:]
	}
	s.windows[symbol] = win

	snapshot := make([]types.Candle, len(win))
	copy(snapshot, win)

	return snapshot, len(win) >= s.maxSize
}

// GetWindow возвращает копию текущего окна символа (от старых к новым).
// Длина окна может быть меньше ёмкости, пока история не накопилась.
func (s *Store) GetWindow(symbol string) []types.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	win := s.windows[symbol]
	snapshot := make([]types.Candle, len(win))
	copy(snapshot, win)

	return snapshot
}

// Symbols возвращает список символов с заведёнными окнами
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.windows))
	for symbol := range s.windows {
		result = append(result, symbol)
	}
	return result
}

// MaxSize возвращает ёмкость окна
func (s *Store) MaxSize() int {
	return s.maxSize
}
