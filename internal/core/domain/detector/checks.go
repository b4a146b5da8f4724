// internal/core/domain/detector/checks.go
package detector

import (
	"fmt"

	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
)

// CheckResult — результат одной проверки с диагностической строкой.
// Диагностика идёт только в лог и не влияет на управление.
type CheckResult struct {
	Passed bool
	Detail string
}

// minCandle находит минимальную цену low среди всех свечей окна, кроме
// последней, и максимальный high среди свечей с этим минимумом.
// При нескольких свечах с одинаковым минимальным low берётся максимальный
// high, а не первое или последнее вхождение.
func minCandle(win []types.Candle) (minPrice, maxInMinPrice float64) {
	scan := win[:len(win)-1]

	minPrice = scan[0].Low
	for _, c := range scan[1:] {
		if c.Low < minPrice {
			minPrice = c.Low
		}
	}

	for _, c := range scan {
		if c.Low == minPrice && c.High > maxInMinPrice {
			maxInMinPrice = c.High
		}
	}

	return minPrice, maxInMinPrice
}

// averageVolume считает средний объём в долларах по всему окну
func averageVolume(win []types.Candle) float64 {
	sum := 0.0
	for _, c := range win {
		sum += c.QuoteVolume
	}
	return sum / float64(len(win))
}

// checkCandleVolumeMultiple — объём новой свечи не меньше среднего объёма
// окна, умноженного на multiple
func checkCandleVolumeMultiple(last types.Candle, avgVolume, multiple float64) CheckResult {
	passed := last.QuoteVolume >= avgVolume*multiple
	return CheckResult{
		Passed: passed,
		Detail: fmt.Sprintf("volume new kline: %.2f >= average_volume: %.2f * %.2f", last.QuoteVolume, avgVolume, multiple),
	}
}

// checkTotalVolumeGreater — суммарный объём окна строго больше порога в долларах
func checkTotalVolumeGreater(win []types.Candle, volume float64) CheckResult {
	sum := 0.0
	for _, c := range win {
		sum += c.QuoteVolume
	}

	return CheckResult{
		Passed: sum > volume,
		Detail: fmt.Sprintf("sum_volume: %.2f > %.2f$", sum, volume),
	}
}

// checkMaxPriceExceedsMinThreshold — high новой свечи выше минимальной цены
// окна не менее чем на percentage процентов
func checkMaxPriceExceedsMinThreshold(minPrice float64, last types.Candle, percentage float64) CheckResult {
	passed := (last.High - minPrice) >= minPrice*(percentage/100)
	return CheckResult{
		Passed: passed,
		Detail: fmt.Sprintf("high new kline: %.6f >= min price: %.6f by %.1f%%", last.High, minPrice, percentage),
	}
}

// checkMaxPriceWithinThreshold — high новой свечи выше low предпоследней
// свечи не более чем на percentage процентов
func checkMaxPriceWithinThreshold(last, penultimate types.Candle, percentage float64) CheckResult {
	passed := (last.High - penultimate.Low) <= penultimate.Low*(percentage/100)
	return CheckResult{
		Passed: passed,
		Detail: fmt.Sprintf("high new kline: %.6f > penultimate kline min price: %.6f not more than %.1f%%",
			last.High, penultimate.Low, percentage),
	}
}

// checkMaxCandle — high новой свечи не ниже high свечи с минимальной ценой
func checkMaxCandle(last types.Candle, maxInMinPrice float64) CheckResult {
	passed := last.High >= maxInMinPrice
	return CheckResult{
		Passed: passed,
		Detail: fmt.Sprintf("high new kline: %.6f >= max in min kline: %.6f", last.High, maxInMinPrice),
	}
}
