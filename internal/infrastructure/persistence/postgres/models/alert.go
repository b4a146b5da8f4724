// internal/infrastructure/persistence/postgres/models/alert.go
package models

import "time"

// FutureAlert — сохранённый алерт по фьючерсному символу.
// Записи append-only: после вставки не изменяются и не удаляются.
// alert_id — монотонно растущий суррогатный ключ, по нему ищется
// последний алерт символа (сортировка по времени дала бы ничьи).
type FutureAlert struct {
	AlertID  int64     `db:"alert_id" json:"alert_id"`
	Future   string    `db:"future"   json:"future"`
	DateTime time.Time `db:"date_time" json:"date_time"`
}
