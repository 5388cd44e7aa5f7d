package indicator

import (
	"math"
	"sort"
	"time"

	"coinapi-go/internal/coinapi"
)

// Series 将汇率K线拆分为便于指标计算的序列。
type Series struct {
	Timestamps []time.Time
	Open       []float64
	High       []float64
	Low        []float64
	Close      []float64
}

// NewSeries 从历史汇率创建 Series，按 time_period_start 升序排列。
func NewSeries(data coinapi.TimeseriesData) Series {
	sorted := make(coinapi.TimeseriesData, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimePeriodStart.Before(sorted[j].TimePeriodStart)
	})

	length := len(sorted)
	series := Series{
		Timestamps: make([]time.Time, length),
		Open:       make([]float64, length),
		High:       make([]float64, length),
		Low:        make([]float64, length),
		Close:      make([]float64, length),
	}

	for i, d := range sorted {
		series.Timestamps[i] = d.TimePeriodStart.UTC()
		series.Open[i] = d.RateOpen
		series.High[i] = d.RateHigh
		series.Low[i] = d.RateLow
		series.Close[i] = d.RateClose
	}

	return series
}

// Len 返回序列长度。
func (s Series) Len() int {
	return len(s.Close)
}

// Last 返回序列最后一个值，若为空则返回 NaN。
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// Prev 返回序列倒数第二个值，若不足两个元素则返回 NaN。
func Prev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return values[len(values)-2]
}

// SafeDivide 除法保护，除数为0时返回0。
func SafeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
