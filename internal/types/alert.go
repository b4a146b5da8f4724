// internal/types/alert.go
package types

// AlertPayload — алерт, ожидающий рассылки подписчикам
type AlertPayload struct {
	Symbol string `json:"symbol"`
}

// AlertFrame — исходящий JSON-фрейм алерта
// {"event":"Alert","E":<unix-seconds>,"symbol":"BTCUSDT"}
type AlertFrame struct {
	Event     string `json:"event"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"symbol"`
}

// PingFrame — исходящий JSON-фрейм пинга
// {"event":"PING","E":<unix-seconds>}
type PingFrame struct {
	Event     string `json:"event"`
	EventTime int64  `json:"E"`
}
