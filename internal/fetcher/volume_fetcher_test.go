package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediscache "github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/cache/redis"
)

type fakeAPI struct {
	volume float64
	err    error
	calls  int
}

func (f *fakeAPI) DailyQuoteVolume(ctx context.Context, symbol string) (float64, error) {
	f.calls++
	return f.volume, f.err
}

type fakeCache struct {
	values map[string]float64
	getErr error
	setErr error
}

func (f *fakeCache) GetDailyVolume(ctx context.Context, symbol string) (float64, error) {
	if f.getErr != nil {
		return 0, f.getErr
	}
	v, ok := f.values[symbol]
	if !ok {
		return 0, rediscache.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) SetDailyVolume(ctx context.Context, symbol string, volume float64, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[symbol] = volume
	return nil
}

func TestFetchWithoutCacheGoesToAPI(t *testing.T) {
	api := &fakeAPI{volume: 80000000}
	f := NewVolumeFetcher(api, nil, 0)

	volume, err := f.DailyQuoteVolume(context.Background(), "BTCUSDT")

	require.NoError(t, err)
	assert.Equal(t, 80000000.0, volume)
	assert.Equal(t, 1, api.calls)
}

func TestFetchAPIErrorPropagates(t *testing.T) {
	api := &fakeAPI{err: errors.New("timeout")}
	f := NewVolumeFetcher(api, nil, 0)

	_, err := f.DailyQuoteVolume(context.Background(), "BTCUSDT")

	assert.Error(t, err)
}

func TestFetchCacheHitSkipsAPI(t *testing.T) {
	api := &fakeAPI{volume: 80000000}
	cache := &fakeCache{values: map[string]float64{"BTCUSDT": 75000000}}
	f := NewVolumeFetcher(api, cache, 30*time.Second)

	volume, err := f.DailyQuoteVolume(context.Background(), "BTCUSDT")

	require.NoError(t, err)
	assert.Equal(t, 75000000.0, volume)
	assert.Zero(t, api.calls)
}

func TestFetchCacheMissFillsCache(t *testing.T) {
	api := &fakeAPI{volume: 80000000}
	cache := &fakeCache{values: map[string]float64{}}
	f := NewVolumeFetcher(api, cache, 30*time.Second)

	volume, err := f.DailyQuoteVolume(context.Background(), "BTCUSDT")

	require.NoError(t, err)
	assert.Equal(t, 80000000.0, volume)
	assert.Equal(t, 80000000.0, cache.values["BTCUSDT"])
}

func TestFetchCacheFailureDegradesToAPI(t *testing.T) {
	api := &fakeAPI{volume: 80000000}
	cache := &fakeCache{values: map[string]float64{}, getErr: errors.New("redis down")}
	f := NewVolumeFetcher(api, cache, 30*time.Second)

	volume, err := f.DailyQuoteVolume(context.Background(), "BTCUSDT")

	require.NoError(t, err)
	assert.Equal(t, 80000000.0, volume)
	assert.Equal(t, 1, api.calls)
}
