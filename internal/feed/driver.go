// internal/feed/driver.go
package feed

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nastiakostenyuk/alert-server-v1/internal/core/domain/symbols"
	"github.com/nastiakostenyuk/alert-server-v1/internal/core/domain/window"
	"github.com/nastiakostenyuk/alert-server-v1/internal/infrastructure/api/exchanges/binance/ws"
	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

// пауза приёмного цикла при пустом буфере стрима
const emptyBackoff = 100 * time.Millisecond

// Feed — источник сырых событий рынка
type Feed interface {
	CreateStream(channel string, symbols []string) ws.StreamID
	Subscribe(id ws.StreamID, channel string, symbols ...string) error
	StreamSymbols(id ws.StreamID) map[string]bool
	PopStreamData() ([]byte, bool)
}

// SymbolSource — источник списка торгуемых фьючерсов
type SymbolSource interface {
	PerpetualSymbols(ctx context.Context) ([]string, error)
}

// Dispatcher принимает заполненное окно свечей на проверку
type Dispatcher interface {
	Dispatch(symbol string, win []types.Candle)
}

// Driver связывает стрим биржи с окнами свечей и детектором:
// раскладывает символы на два шарда, читает события стрима, пишет
// закрытые свечи в окна и передаёт заполненные окна детектору.
// Периодический ресинк дозаказывает подписку на появившиеся символы.
type Driver struct {
	feed       Feed
	source     SymbolSource
	windows    *window.Store
	dispatcher Dispatcher

	channel        string
	splitLetter    string
	requestTimeout time.Duration

	streams [2]ws.StreamID
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDriver создает драйвер стрима
func NewDriver(feed Feed, source SymbolSource, windows *window.Store, dispatcher Dispatcher,
	channel, splitLetter string, requestTimeout time.Duration) *Driver {
	return &Driver{
		feed:           feed,
		source:         source,
		windows:        windows,
		dispatcher:     dispatcher,
		channel:        channel,
		splitLetter:    splitLetter,
		requestTimeout: requestTimeout,
		stopCh:         make(chan struct{}),
	}
}

// Start подписывает оба шарда и запускает приёмный цикл.
// Ошибка первоначальной загрузки символов не фатальна: стрим стартует
// пустым, символы доберёт ближайший ресинк.
func (d *Driver) Start(ctx context.Context) {
	list := d.fetchSymbols(ctx)
	first, second := symbols.Partition(list, d.splitLetter)

	d.streams[0] = d.feed.CreateStream(d.channel, first)
	d.streams[1] = d.feed.CreateStream(d.channel, second)

	for _, s := range list {
		d.windows.Ensure(s)
	}

	logger.Info("🔄 Feed: запущен, символов: %d (%d + %d)", len(list), len(first), len(second))

	d.wg.Add(1)
	go d.receiveLoop()
}

// Stop останавливает приёмный цикл
func (d *Driver) Stop() {
	close(d.stopCh)
	d.wg.Wait()
	logger.Info("🛑 Feed: остановлен")
}

// UpdateMarkets дозаказывает подписку на символы, появившиеся на бирже
// после старта. Подписка только добавляется, исчезнувшие символы
// не отписываются.
func (d *Driver) UpdateMarkets(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()

	list, err := d.source.PerpetualSymbols(reqCtx)
	if err != nil {
		logger.Warn("⚠️ Feed: ресинк символов не удался: %v", err)
		return err
	}

	shards := [2][]string{}
	shards[0], shards[1] = symbols.Partition(list, d.splitLetter)

	added := 0
	for i, id := range d.streams {
		known := d.feed.StreamSymbols(id)

		missing := make([]string, 0)
		for _, s := range shards[i] {
			if !known[strings.ToLower(s)] {
				missing = append(missing, s)
			}
		}
		if len(missing) == 0 {
			continue
		}

		if err := d.feed.Subscribe(id, d.channel, missing...); err != nil {
			logger.Warn("⚠️ Feed: не удалось дозаказать %d символов: %v", len(missing), err)
			continue
		}
		for _, s := range missing {
			d.windows.Ensure(s)
		}
		added += len(missing)
	}

	if added > 0 {
		logger.Info("➕ Feed: добавлено новых символов: %d", added)
	}
	return nil
}

func (d *Driver) fetchSymbols(ctx context.Context) []string {
	reqCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()

	list, err := d.source.PerpetualSymbols(reqCtx)
	if err != nil {
		logger.Error("❌ Feed: не удалось загрузить список символов: %v", err)
		return nil
	}
	return list
}

func (d *Driver) receiveLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		data, ok := d.feed.PopStreamData()
		if !ok {
			time.Sleep(emptyBackoff)
			continue
		}

		d.handleFrame(data)
	}
}

// handleFrame обрабатывает один кадр стрима. Паника обработки одного
// кадра не роняет приёмный цикл.
func (d *Driver) handleFrame(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("💥 Feed: паника при обработке кадра: %v", r)
		}
	}()

	event, err := types.ParseStreamEvent(data)
	if err != nil {
		logger.Debug("Feed: нечитаемый кадр: %v", err)
		return
	}
	if event.Kind != types.EventKline {
		return
	}

	candle := event.Kline.Candle
	if !candle.Closed {
		return
	}

	win, full := d.windows.RecordClosedCandle(event.Kline.Symbol, candle)
	if full {
		d.dispatcher.Dispatch(event.Kline.Symbol, win)
	}
}
