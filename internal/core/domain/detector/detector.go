// internal/core/domain/detector/detector.go
package detector

import (
	"context"
	"fmt"
	"sync"

	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

// Config — параметры стратегии обнаружения
type Config struct {
	MaximumKlines               int
	AvgIncrease                 float64
	VolumeMultiple              float64
	PercentToMaxPriceExceedsMin float64
	WithinThreshold             float64
	MinDailyVolume              float64
}

// VolumeSource отдаёт текущий суточный объём торгов по символу в долларах
type VolumeSource interface {
	DailyQuoteVolume(ctx context.Context, symbol string) (float64, error)
}

// Sink принимает положительное срабатывание для фиксации и рассылки
type Sink interface {
	Emit(symbol string, candle types.Candle)
}

// Detector — шестиступенчатый конвейер проверок над окном свечей.
// Каждое срабатывание обрабатывается отдельной задачей, не блокируя
// приём событий; по одному символу одновременно выполняется не больше
// одной проверки — перекрывающиеся проверки одного символа бессмысленны.
type Detector struct {
	config       Config
	cooldownGate *CooldownGate
	volumeSource VolumeSource
	sink         Sink

	mu       sync.Mutex
	inFlight map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDetector создает конвейер проверок
func NewDetector(config Config, gate *CooldownGate, volumeSource VolumeSource, sink Sink) *Detector {
	ctx, cancel := context.WithCancel(context.Background())

	return &Detector{
		config:       config,
		cooldownGate: gate,
		volumeSource: volumeSource,
		sink:         sink,
		inFlight:     make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Dispatch запускает проверку символа асинхронной задачей.
// Если окно не заполнено или по символу уже идёт проверка — не делает ничего.
func (d *Detector) Dispatch(symbol string, win []types.Candle) {
	if len(win) < d.config.MaximumKlines || len(win) < 2 {
		return
	}

	d.mu.Lock()
	if d.inFlight[symbol] {
		d.mu.Unlock()
		logger.Debug("⏳ Detector: проверка %s уже выполняется, пропуск", symbol)
		return
	}
	d.inFlight[symbol] = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.inFlight, symbol)
			d.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("💥 Detector: паника при проверке %s: %v", symbol, r)
			}
		}()

		d.run(symbol, win)
	}()
}

// run выполняет все шесть проверок и при их прохождении — вторичный
// фильтр по суточному объёму
func (d *Detector) run(symbol string, win []types.Candle) {
	last := win[len(win)-1]
	penultimate := win[len(win)-2]

	minPrice, maxInMinPrice := minCandle(win)
	avgVolume := averageVolume(win)

	results := []CheckResult{
		checkCandleVolumeMultiple(last, avgVolume, d.config.VolumeMultiple),
		checkTotalVolumeGreater(win, d.config.AvgIncrease),
		checkMaxPriceExceedsMinThreshold(minPrice, last, d.config.PercentToMaxPriceExceedsMin),
		checkMaxPriceWithinThreshold(last, penultimate, d.config.WithinThreshold),
		checkMaxCandle(last, maxInMinPrice),
		d.cooldownGate.HasElapsed(symbol, last.OpenedAt()),
	}

	passed := true
	details := make([]string, 0, len(results))
	for i, r := range results {
		passed = passed && r.Passed
		details = append(details, logLine(i+1, r))
	}
	logger.Checks(symbol, passed, details)

	if !passed {
		return
	}

	// Вторичный фильтр: суточный объём торгов. Ошибка запроса
	// трактуется как нулевой объём — алерт не отправляется.
	volume, err := d.volumeSource.DailyQuoteVolume(d.ctx, symbol)
	if err != nil {
		logger.Error("❌ Detector: ошибка получения суточного объёма %s: %v", symbol, err)
		volume = 0
	}

	if volume < d.config.MinDailyVolume {
		logger.Info("➖ Remove Alert %s: quote volume %.0f < %.0f", symbol, volume, d.config.MinDailyVolume)
		return
	}

	logger.Alert(symbol, last.OpenedAt(), volume)
	d.sink.Emit(symbol, last)
}

// Stop останавливает конвейер и дожидается завершения текущих проверок
func (d *Detector) Stop() {
	d.cancel()
	d.wg.Wait()
}

func logLine(n int, r CheckResult) string {
	return fmt.Sprintf("check №%d (%t %s)", n, r.Passed, r.Detail)
}
