// internal/feed/driver_test.go
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nastiakostenyuk/alert-server-v1/internal/core/domain/detector"
	"github.com/nastiakostenyuk/alert-server-v1/internal/core/domain/window"
	"github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/api/exchanges/binance/ws"
	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
)

type fakeFeed struct {
	mu         sync.Mutex
	frames     [][]byte
	created    [][]string
	streams    map[ws.StreamID]map[string]bool
	subscribed map[ws.StreamID][]string
	subErr     error
	nextID     int
}

func newFakeFeed(frames ...[]byte) *fakeFeed {
	return &fakeFeed{
		frames:     frames,
		streams:    make(map[ws.StreamID]map[string]bool),
		subscribed: make(map[ws.StreamID][]string),
	}
}

func (f *fakeFeed) CreateStream(channel string, symbols []string) ws.StreamID {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := ws.StreamID(fmt.Sprintf("stream-%d", f.nextID))
	f.created = append(f.created, append([]string(nil), symbols...))

	topics := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		topics[toLower(s)] = true
	}
	f.streams[id] = topics
	return id
}

func (f *fakeFeed) Subscribe(id ws.StreamID, channel string, symbols ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subErr != nil {
		return f.subErr
	}
	f.subscribed[id] = append(f.subscribed[id], symbols...)
	for _, s := range symbols {
		f.streams[id][toLower(s)] = true
	}
	return nil
}

func (f *fakeFeed) StreamSymbols(id ws.StreamID) map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[string]bool, len(f.streams[id]))
	for s := range f.streams[id] {
		result[s] = true
	}
	return result
}

func (f *fakeFeed) PopStreamData() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.frames) == 0 {
		return nil, false
	}
	data := f.frames[0]
	f.frames = f.frames[1:]
	return data, true
}

func toLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

type fakeSource struct {
	mu      sync.Mutex
	symbols []string
	err     error
}

func (s *fakeSource) PerpetualSymbols(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.symbols...), nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

type dispatchCall struct {
	symbol string
	win    []types.Candle
}

func (d *fakeDispatcher) Dispatch(symbol string, win []types.Candle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{symbol: symbol, win: win})
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func klineFrame(symbol string, openTime int64, high, low, quoteVolume string, closed bool) []byte {
	return []byte(fmt.Sprintf(
		`{"stream":"%s@kline_1m","data":{"e":"kline","E":%d,"s":"%s","k":{"t":%d,"s":"%s","h":"%s","l":"%s","q":"%s","x":%t}}}`,
		toLower(symbol), openTime, symbol, openTime, symbol, high, low, quoteVolume, closed))
}

func TestStartPartitionsSymbolsIntoTwoShards(t *testing.T) {
	feed := newFakeFeed()
	source := &fakeSource{symbols: []string{"BTCUSDT", "ETHUSDT", "ADAUSDT", "KASUSDT"}}
	windows := window.NewStore(10)

	driver := NewDriver(feed, source, windows, &fakeDispatcher{}, "kline_1m", "K", time.Second)
	driver.Start(context.Background())
	defer driver.Stop()

	require.Len(t, feed.created, 2)
	assert.Equal(t, []string{"ADAUSDT", "BTCUSDT", "ETHUSDT"}, feed.created[0])
	assert.Equal(t, []string{"KASUSDT"}, feed.created[1])
	assert.Len(t, windows.Symbols(), 4)
}

func TestStartDegradesOnSymbolFetchFailure(t *testing.T) {
	feed := newFakeFeed()
	source := &fakeSource{err: errors.New("exchange down")}
	windows := window.NewStore(10)

	driver := NewDriver(feed, source, windows, &fakeDispatcher{}, "kline_1m", "K", time.Second)
	driver.Start(context.Background())
	defer driver.Stop()

	require.Len(t, feed.created, 2)
	assert.Empty(t, feed.created[0])
	assert.Empty(t, feed.created[1])
}

func TestReceiveLoopDispatchesFullWindows(t *testing.T) {
	feed := newFakeFeed(
		klineFrame("BTCUSDT", 1000, "101", "100", "500000", true),
		klineFrame("BTCUSDT", 2000, "102", "100", "500000", false), // незакрытая
		[]byte(`{"stream":"btcusdt@markPrice","data":{"e":"markPriceUpdate"}}`),
		[]byte(`не json`),
		klineFrame("BTCUSDT", 3000, "103", "100", "500000", true),
		klineFrame("BTCUSDT", 4000, "104", "100", "500000", true),
	)
	source := &fakeSource{symbols: []string{"BTCUSDT"}}
	windows := window.NewStore(3)
	dispatcher := &fakeDispatcher{}

	driver := NewDriver(feed, source, windows, dispatcher, "kline_1m", "K", time.Second)
	driver.Start(context.Background())
	defer driver.Stop()

	require.Eventually(t, func() bool { return dispatcher.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	dispatcher.mu.Lock()
	call := dispatcher.calls[0]
	dispatcher.mu.Unlock()

	assert.Equal(t, "BTCUSDT", call.symbol)
	require.Len(t, call.win, 3)
	assert.Equal(t, int64(1000), call.win[0].OpenTime)
	assert.Equal(t, int64(4000), call.win[2].OpenTime)
	assert.True(t, call.win[2].Closed)
}

func TestUpdateMarketsSubscribesOnlyNewSymbols(t *testing.T) {
	feed := newFakeFeed()
	source := &fakeSource{symbols: []string{"BTCUSDT", "KASUSDT"}}
	windows := window.NewStore(10)

	driver := NewDriver(feed, source, windows, &fakeDispatcher{}, "kline_1m", "K", time.Second)
	driver.Start(context.Background())
	defer driver.Stop()

	source.mu.Lock()
	source.symbols = []string{"BTCUSDT", "ETHUSDT", "KASUSDT", "ZENUSDT"}
	source.mu.Unlock()

	require.NoError(t, driver.UpdateMarkets(context.Background()))

	assert.Equal(t, []string{"ETHUSDT"}, feed.subscribed[driver.streams[0]])
	assert.Equal(t, []string{"ZENUSDT"}, feed.subscribed[driver.streams[1]])
	assert.Len(t, windows.Symbols(), 4)

	// Повторный ресинк не дозаказывает уже подписанное
	require.NoError(t, driver.UpdateMarkets(context.Background()))
	assert.Equal(t, []string{"ETHUSDT"}, feed.subscribed[driver.streams[0]])
}

func TestUpdateMarketsPropagatesFetchError(t *testing.T) {
	feed := newFakeFeed()
	source := &fakeSource{symbols: []string{"BTCUSDT"}}
	windows := window.NewStore(10)

	driver := NewDriver(feed, source, windows, &fakeDispatcher{}, "kline_1m", "K", time.Second)
	driver.Start(context.Background())
	defer driver.Stop()

	source.mu.Lock()
	source.err = errors.New("exchange down")
	source.mu.Unlock()

	assert.Error(t, driver.UpdateMarkets(context.Background()))
}

// --- сквозной сценарий: стрим -> окно -> детектор -> sink ---

type pipelineHistory struct{}

func (pipelineHistory) FindLastBySymbol(string) (*detector.LastAlert, error) { return nil, nil }

type pipelineVolumes struct{ volume float64 }

func (v pipelineVolumes) DailyQuoteVolume(context.Context, string) (float64, error) {
	return v.volume, nil
}

type pipelineSink struct {
	mu    sync.Mutex
	emits []string
}

func (s *pipelineSink) Emit(symbol string, _ types.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emits = append(s.emits, symbol)
}

func (s *pipelineSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.emits)
}

func TestPipelineEmitsSingleAlertOnSpike(t *testing.T) {
	frames := make([][]byte, 0, 10)
	for i := 0; i < 9; i++ {
		frames = append(frames, klineFrame("BTCUSDT", int64(60000*(i+1)), "101", "100", "500000", true))
	}
	// Десятая свеча: всплеск объёма и вынос максимума
	frames = append(frames, klineFrame("BTCUSDT", 600000, "105", "101", "9000000", true))

	feed := newFakeFeed(frames...)
	source := &fakeSource{symbols: []string{"BTCUSDT"}}
	windows := window.NewStore(10)
	sink := &pipelineSink{}

	det := detector.NewDetector(detector.Config{
		MaximumKlines:               10,
		AvgIncrease:                 3500000,
		VolumeMultiple:              3.5,
		PercentToMaxPriceExceedsMin: 3,
		WithinThreshold:             9,
		MinDailyVolume:              70000000,
	}, detector.NewCooldownGate(pipelineHistory{}, 90), pipelineVolumes{volume: 100000000}, sink)
	defer det.Stop()

	driver := NewDriver(feed, source, windows, det, "kline_1m", "K", time.Second)
	driver.Start(context.Background())
	defer driver.Stop()

	require.Eventually(t, func() bool { return sink.count() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"BTCUSDT"}, sink.emits)
}

func TestPipelineSuppressesAlertOnLowDailyVolume(t *testing.T) {
	frames := make([][]byte, 0, 10)
	for i := 0; i < 9; i++ {
		frames = append(frames, klineFrame("ETHUSDT", int64(60000*(i+1)), "101", "100", "500000", true))
	}
	frames = append(frames, klineFrame("ETHUSDT", 600000, "105", "101", "9000000", true))

	feed := newFakeFeed(frames...)
	source := &fakeSource{symbols: []string{"ETHUSDT"}}
	windows := window.NewStore(10)
	sink := &pipelineSink{}

	det := detector.NewDetector(detector.Config{
		MaximumKlines:               10,
		AvgIncrease:                 3500000,
		VolumeMultiple:              3.5,
		PercentToMaxPriceExceedsMin: 3,
		WithinThreshold:             9,
		MinDailyVolume:              70000000,
	}, detector.NewCooldownGate(pipelineHistory{}, 90), pipelineVolumes{volume: 1000000}, sink)
	defer det.Stop()

	driver := NewDriver(feed, source, windows, det, "kline_1m", "K", time.Second)
	driver.Start(context.Background())
	defer driver.Stop()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}
