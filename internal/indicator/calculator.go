package indicator

import (
	"errors"
	"fmt"
	"math"
	"sync"

	talib "github.com/markcheno/go-talib"

	"coinapi-go/internal/coinapi"
	"coinapi-go/internal/period"
)

const (
	emaFastPeriod   = 12
	emaSlowPeriod   = 26
	rsiPeriod       = 14
	atrPeriod       = 14
	bollingerPeriod = 20
	bollingerStdDev = 2
)

// ErrEmptySeries 表示没有可计算的数据。
var ErrEmptySeries = errors.New("indicator: 输入汇率为空")

// BollingerResult 保存布林带数据。
type BollingerResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	Bandwidth float64
	Position  float64
}

// ATRResult 保存 ATR 指标。
type ATRResult struct {
	Absolute float64
	Relative float64
}

// Result 为一次指标计算的汇总。样本不足的指标为 NaN。
type Result struct {
	Period        period.Period
	Samples       int
	EMA12         float64
	EMA26         float64
	RSI           float64
	ATR           ATRResult
	Bollinger     BollingerResult
	Close         float64
	PreviousClose float64
	Change        float64
}

type cacheEntry struct {
	key    string
	result Result
}

// Calculator 提供技术指标计算并带有简单缓存。
type Calculator struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCalculator 创建 Calculator。
func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[string]cacheEntry),
	}
}

// Compute 依据给定周期的历史汇率计算常用技术指标，name 用于区分缓存，例如 "BTC/USD@1HRS"。
func (c *Calculator) Compute(name string, p period.Period, data coinapi.TimeseriesData) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrEmptySeries
	}

	series := NewSeries(data)
	cacheKey := fmt.Sprintf("%d:%d:%g", series.Len(), series.Timestamps[series.Len()-1].Unix(), Last(series.Close))

	c.mu.Lock()
	if entry, ok := c.cache[name]; ok && entry.key == cacheKey {
		c.mu.Unlock()
		return entry.result, nil
	}
	c.mu.Unlock()

	result := calculate(p, series)

	c.mu.Lock()
	c.cache[name] = cacheEntry{key: cacheKey, result: result}
	c.mu.Unlock()

	return result, nil
}

func calculate(p period.Period, series Series) Result {
	closes := series.Close
	n := series.Len()

	lastClose := Last(closes)
	prevClose := Prev(closes)

	result := Result{
		Period:        p,
		Samples:       n,
		EMA12:         math.NaN(),
		EMA26:         math.NaN(),
		RSI:           math.NaN(),
		ATR:           ATRResult{Absolute: math.NaN(), Relative: math.NaN()},
		Bollinger:     BollingerResult{Upper: math.NaN(), Middle: math.NaN(), Lower: math.NaN(), Bandwidth: math.NaN(), Position: math.NaN()},
		Close:         lastClose,
		PreviousClose: prevClose,
		Change:        math.NaN(),
	}

	if n >= 2 {
		result.Change = SafeDivide(lastClose-prevClose, prevClose)
	}
	// talib 在样本少于窗口时会越界，逐项判断
	if n >= emaFastPeriod {
		result.EMA12 = Last(talib.Ema(closes, emaFastPeriod))
	}
	if n >= emaSlowPeriod {
		result.EMA26 = Last(talib.Ema(closes, emaSlowPeriod))
	}
	if n > rsiPeriod {
		result.RSI = Last(talib.Rsi(closes, rsiPeriod))
	}
	if n > atrPeriod {
		atr := Last(talib.Atr(series.High, series.Low, closes, atrPeriod))
		result.ATR = ATRResult{Absolute: atr, Relative: SafeDivide(atr, lastClose)}
	}
	if n >= bollingerPeriod {
		upper, middle, lower := talib.BBands(closes, bollingerPeriod, bollingerStdDev, bollingerStdDev, talib.SMA)
		result.Bollinger = buildBollinger(closes, upper, middle, lower)
	}

	return result
}

func buildBollinger(close, upper, middle, lower []float64) BollingerResult {
	u := Last(upper)
	m := Last(middle)
	l := Last(lower)
	width := u - l
	bandwidth := SafeDivide(width, m)

	position := 0.0
	if width > 0 {
		position = SafeDivide(Last(close)-l, width)
	}

	// 将位置限制在[0,1]区间，便于后续使用。
	position = math.Max(0, math.Min(1, position))

	return BollingerResult{
		Upper:     u,
		Middle:    m,
		Lower:     l,
		Bandwidth: bandwidth,
		Position:  position,
	}
}
