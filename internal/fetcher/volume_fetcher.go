// internal/fetcher/volume_fetcher.go
package fetcher

import (
	"context"
	"errors"
	"time"

	rediscache "github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/cache/redis"
	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

// TickerAPI — REST-источник суточного объёма торгов
type TickerAPI interface {
	DailyQuoteVolume(ctx context.Context, symbol string) (float64, error)
}

// VolumeCache — опциональный кэш суточных объёмов
type VolumeCache interface {
	GetDailyVolume(ctx context.Context, symbol string) (float64, error)
	SetDailyVolume(ctx context.Context, symbol string, volume float64, ttl time.Duration) error
}

// VolumeFetcher отдаёт суточный объём торгов, при включённом Redis
// прикрывая REST коротким кэшем. Ошибка REST пробрасывается наверх —
// вторичный фильтр детектора трактует её как нулевой объём.
type VolumeFetcher struct {
	api   TickerAPI
	cache VolumeCache // nil — кэширование выключено
	ttl   time.Duration
}

// NewVolumeFetcher создает источник суточного объёма.
// cache может быть nil — тогда каждый запрос идёт напрямую в REST.
func NewVolumeFetcher(api TickerAPI, cache VolumeCache, ttl time.Duration) *VolumeFetcher {
	return &VolumeFetcher{api: api, cache: cache, ttl: ttl}
}

// DailyQuoteVolume возвращает суточный объём торгов символа в долларах
func (f *VolumeFetcher) DailyQuoteVolume(ctx context.Context, symbol string) (float64, error) {
	if f.cache != nil {
		volume, err := f.cache.GetDailyVolume(ctx, symbol)
		if err == nil {
			return volume, nil
		}
		if !errors.Is(err, rediscache.ErrCacheMiss) {
			logger.Warn("⚠️ VolumeFetcher: ошибка чтения кэша %s: %v", symbol, err)
		}
	}

	volume, err := f.api.DailyQuoteVolume(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if f.cache != nil {
		if err := f.cache.SetDailyVolume(ctx, symbol, volume, f.ttl); err != nil {
			logger.Warn("⚠️ VolumeFetcher: ошибка записи кэша %s: %v", symbol, err)
		}
	}

	return volume, nil
}
