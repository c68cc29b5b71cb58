package market

import (
	"sort"
	"time"
)

// Bar is one OHLCV sample for a fixed time period.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IndicatorBar is a Bar plus named derived values (moving averages,
// ATR, ...). Values are attached with With, which returns a copy, so a
// bar handed out by the engine can never be changed underneath it.
type IndicatorBar struct {
	Bar
	values map[string]float64
}

// NewIndicatorBar wraps b with no indicator values.
func NewIndicatorBar(b Bar) IndicatorBar {
	return IndicatorBar{Bar: b}
}

// Indicator returns the named value and whether it is present.
func (b IndicatorBar) Indicator(name string) (float64, bool) {
	v, ok := b.values[name]
	return v, ok
}

// With returns a copy of b carrying name=v.
func (b IndicatorBar) With(name string, v float64) IndicatorBar {
	values := make(map[string]float64, len(b.values)+1)
	for k, old := range b.values {
		values[k] = old
	}
	values[name] = v
	return IndicatorBar{Bar: b.Bar, values: values}
}

// Indicators returns the indicator names in sorted order.
func (b IndicatorBar) Indicators() []string {
	names := make([]string, 0, len(b.values))
	for k := range b.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Wrap converts plain bars to indicator bars with no values.
func Wrap(bars []Bar) []IndicatorBar {
	out := make([]IndicatorBar, len(bars))
	for i, b := range bars {
		out[i] = NewIndicatorBar(b)
	}
	return out
}

func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
