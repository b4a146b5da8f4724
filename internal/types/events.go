// internal/types/events.go
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EventKind — закрытое множество видов событий стрима
type EventKind int

const (
	EventUnknown EventKind = iota
	EventKline
)

// StreamEvent — разобранное событие стрима.
// Для EventUnknown поле Kline пустое, событие игнорируется вызывающим кодом.
type StreamEvent struct {
	Kind  EventKind
	Kline KlineEvent
}

// KlineEvent — событие свечи из потока Binance Futures
type KlineEvent struct {
	Symbol string
	Candle Candle
}

// combinedFrame — обёртка combined-стрима {"stream": "...", "data": {...}}
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// rawEvent — общая шапка события с типом
type rawEvent struct {
	EventType string `json:"e"`
}

// rawKline — полезная нагрузка события kline
type rawKline struct {
	Symbol string `json:"s"`
	Kline  struct {
		OpenTime    int64  `json:"t"`
		Symbol      string `json:"s"`
		High        string `json:"h"`
		Low         string `json:"l"`
		QuoteVolume string `json:"q"`
		Closed      bool   `json:"x"`
	} `json:"k"`
}

// ParseStreamEvent разбирает сырое событие стрима в один из известных видов.
// Combined-обёртка снимается; события неизвестного типа возвращаются
// как EventUnknown без ошибки.
func ParseStreamEvent(data []byte) (StreamEvent, error) {
	payload := data

	var frame combinedFrame
	if err := json.Unmarshal(data, &frame); err == nil && len(frame.Data) > 0 {
		payload = frame.Data
	}

	var head rawEvent
	if err := json.Unmarshal(payload, &head); err != nil {
		return StreamEvent{}, fmt.Errorf("parse stream event: %w", err)
	}

	switch head.EventType {
	case "kline":
		return parseKlineEvent(payload)
	default:
		return StreamEvent{Kind: EventUnknown}, nil
	}
}

func parseKlineEvent(payload []byte) (StreamEvent, error) {
	var raw rawKline
	if err := json.Unmarshal(payload, &raw); err != nil {
		return StreamEvent{}, fmt.Errorf("parse kline event: %w", err)
	}

	high, err := strconv.ParseFloat(raw.Kline.High, 64)
	if err != nil {
		return StreamEvent{}, fmt.Errorf("parse kline high %q: %w", raw.Kline.High, err)
	}
	low, err := strconv.ParseFloat(raw.Kline.Low, 64)
	if err != nil {
		return StreamEvent{}, fmt.Errorf("parse kline low %q: %w", raw.Kline.Low, err)
	}
	quoteVolume, err := strconv.ParseFloat(raw.Kline.QuoteVolume, 64)
	if err != nil {
		return StreamEvent{}, fmt.Errorf("parse kline quote volume %q: %w", raw.Kline.QuoteVolume, err)
	}

	symbol := raw.Symbol
	if symbol == "" {
		symbol = raw.Kline.Symbol
	}

	return StreamEvent{
		Kind: EventKline,
		Kline: KlineEvent{
			Symbol: symbol,
			Candle: Candle{
				Symbol:      symbol,
				OpenTime:    raw.Kline.OpenTime,
				High:        high,
				Low:         low,
				QuoteVolume: quoteVolume,
				Closed:      raw.Kline.Closed,
			},
		},
	}, nil
}
