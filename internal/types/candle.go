// internal/types/candle.go
package types

import "time"

// Candle — закрытая минутная свеча по символу.
// После записи в окно содержимое свечи не меняется.
type Candle struct {
	Symbol      string
	OpenTime    int64 // unix миллисекунды начала интервала
	High        float64
	Low         float64
	QuoteVolume float64
	Closed      bool
}

// OpenedAt возвращает время открытия свечи
func (c Candle) OpenedAt() time.Time {
	return time.UnixMilli(c.OpenTime)
}
