// internal/infrastructure/api/exchanges/binance/ws/errors.go
package ws

import "errors"

// ErrUnknownStream возвращается при обращении к несуществующему шарду
var ErrUnknownStream = errors.New("unknown stream id")
