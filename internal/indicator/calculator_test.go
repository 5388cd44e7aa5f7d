package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"coinapi-go/internal/coinapi"
	"coinapi-go/internal/period"
)

func risingRates(n int) coinapi.TimeseriesData {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	data := make(coinapi.TimeseriesData, 0, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		begin := start.Add(time.Duration(i) * time.Hour)
		data = append(data, coinapi.TimeseriesDatum{
			TimePeriodStart: begin,
			TimePeriodEnd:   begin.Add(time.Hour),
			RateOpen:        c - 1,
			RateHigh:        c + 2,
			RateLow:         c - 2,
			RateClose:       c,
		})
	}
	return data
}

func TestCompute_RisingSeries(t *testing.T) {
	calc := NewCalculator()
	p := period.New(period.Hour, 1)

	result, err := calc.Compute("BTC/USD", p, risingRates(40))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.Samples != 40 || result.Period != p {
		t.Errorf("unexpected header %+v", result)
	}
	if result.Close != 139 || result.PreviousClose != 138 {
		t.Errorf("unexpected closes %f %f", result.Close, result.PreviousClose)
	}
	if !(result.EMA12 < result.Close && result.EMA26 < result.EMA12) {
		t.Errorf("expected EMA26 < EMA12 < close, got %f %f %f", result.EMA26, result.EMA12, result.Close)
	}
	if result.RSI < 70 || result.RSI > 100 {
		t.Errorf("expected overbought RSI, got %f", result.RSI)
	}
	if diff := math.Abs(result.ATR.Absolute - 4); diff > 1e-6 {
		t.Errorf("expected ATR=4, got %f", result.ATR.Absolute)
	}
	if result.Bollinger.Upper <= result.Bollinger.Lower {
		t.Errorf("unexpected bollinger %+v", result.Bollinger)
	}
	if result.Bollinger.Position < 0 || result.Bollinger.Position > 1 {
		t.Errorf("bollinger position out of range: %f", result.Bollinger.Position)
	}
}

func TestCompute_ShortSeries(t *testing.T) {
	result, err := NewCalculator().Compute("BTC/USD", period.New(period.Day, 1), risingRates(5))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if !math.IsNaN(result.EMA12) || !math.IsNaN(result.RSI) || !math.IsNaN(result.ATR.Absolute) || !math.IsNaN(result.Bollinger.Middle) {
		t.Errorf("expected NaN indicators for short series, got %+v", result)
	}
	if result.Close != 104 {
		t.Errorf("expected close 104, got %f", result.Close)
	}
	if diff := math.Abs(result.Change - 1.0/103.0); diff > 1e-9 {
		t.Errorf("unexpected change %f", result.Change)
	}
}

func TestCompute_Empty(t *testing.T) {
	if _, err := NewCalculator().Compute("BTC/USD", period.Smallest(), nil); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestNewSeries_SortsByStart(t *testing.T) {
	data := risingRates(3)
	data[0], data[2] = data[2], data[0]

	series := NewSeries(data)
	if series.Close[0] != 100 || series.Close[2] != 102 {
		t.Errorf("expected ascending order, got %v", series.Close)
	}
	if data[0].RateClose != 102 {
		t.Errorf("NewSeries must not reorder its input")
	}
}
