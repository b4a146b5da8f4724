// internal/infrastructure/persistence/postgres/repository/alert/repository.go
package alert_repo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nastiakostenyuk/alert-server-v1/internal/core/domain/detector"
	"github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/persistence/postgres/models"
	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

// AlertRepository — append-only хранилище алертов
type AlertRepository interface {
	Save(symbol string, dateTime time.Time) error
	FindLastBySymbol(symbol string) (*detector.LastAlert, error)
}

type alertRepoImpl struct {
	db *sqlx.DB
}

// NewAlertRepository создаёт реализацию AlertRepository
func NewAlertRepository(db *sqlx.DB) AlertRepository {
	return &alertRepoImpl{db: db}
}

// Save вставляет новую запись алерта.
// Возврат без ошибки означает, что запись зафиксирована в БД.
func (r *alertRepoImpl) Save(symbol string, dateTime time.Time) error {
	query := `
		INSERT INTO alerts (future, date_time)
		VALUES ($1, $2)
	`
	_, err := r.db.Exec(query, symbol, dateTime)
	if err != nil {
		return fmt.Errorf("AlertRepo.Save: %w", err)
	}

	logger.Info("💾 Алерт сохранён в БД: %s (%s)", symbol, dateTime.Format("15:04:05"))
	return nil
}

// FindLastBySymbol возвращает последний алерт символа по максимальному
// alert_id; nil без ошибки — алертов по символу ещё не было
func (r *alertRepoImpl) FindLastBySymbol(symbol string) (*detector.LastAlert, error) {
	query := `
		SELECT alert_id, future, date_time
		FROM alerts
		WHERE future = $1
		ORDER BY alert_id DESC
		LIMIT 1
	`
	var row models.FutureAlert
	if err := r.db.Get(&row, query, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("AlertRepo.FindLastBySymbol: %w", err)
	}

	return &detector.LastAlert{
		ID:       row.AlertID,
		Symbol:   row.Future,
		DateTime: row.DateTime,
	}, nil
}
