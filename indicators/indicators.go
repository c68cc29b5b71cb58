// Package indicators attaches technical indicator values to bars ahead of a
// backtest. The math is delegated to go-talib.
package indicators

import (
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/tradesim/market"
)

// Kind names an indicator.
type Kind string

const (
	SMA Kind = "sma"
	EMA Kind = "ema"
	ATR Kind = "atr"
	RSI Kind = "rsi"
)

// Spec asks for one indicator column. Name is the key the value is stored
// under on each bar; it defaults to "<kind><period>", e.g. "sma20".
type Spec struct {
	Name   string
	Kind   Kind
	Period int
}

func (s Spec) key() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s%d", s.Kind, s.Period)
}

// lookback is the number of leading bars with no valid value.
func (s Spec) lookback() int {
	switch s.Kind {
	case SMA, EMA:
		return s.Period - 1
	default:
		return s.Period
	}
}

func (s Spec) validate() error {
	if s.Period <= 0 {
		return fmt.Errorf("indicators: %s period must be positive, got %d", s.Kind, s.Period)
	}
	switch s.Kind {
	case SMA, EMA, ATR, RSI:
	default:
		return fmt.Errorf("indicators: unknown kind %q", s.Kind)
	}
	if s.Kind == RSI && s.Period < 2 {
		return fmt.Errorf("indicators: rsi period must be at least 2, got %d", s.Period)
	}
	return nil
}

// ParseKind accepts an indicator name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case SMA, EMA, ATR, RSI:
		return k, nil
	}
	return "", fmt.Errorf("indicators: unknown kind %q", s)
}

// Apply computes every spec over bars and returns indicator bars starting
// at the first bar where all values are valid. Fewer bars than the
// longest warm-up gives an empty result, not an error.
func Apply(bars []market.Bar, specs ...Spec) ([]market.IndicatorBar, error) {
	warm := 0
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		warm = max(warm, s.lookback())
	}
	if len(bars) <= warm {
		return []market.IndicatorBar{}, nil
	}

	closes := market.Closes(bars)
	var highs, lows []float64

	columns := make([][]float64, len(specs))
	for i, s := range specs {
		switch s.Kind {
		case SMA:
			columns[i] = talib.Sma(closes, s.Period)
		case EMA:
			columns[i] = talib.Ema(closes, s.Period)
		case RSI:
			columns[i] = talib.Rsi(closes, s.Period)
		case ATR:
			if highs == nil {
				highs, lows = market.Highs(bars), market.Lows(bars)
			}
			columns[i] = talib.Atr(highs, lows, closes, s.Period)
		}
	}

	out := make([]market.IndicatorBar, 0, len(bars)-warm)
	for j := warm; j < len(bars); j++ {
		ib := market.NewIndicatorBar(bars[j])
		for i, s := range specs {
			ib = ib.With(s.key(), columns[i][j])
		}
		out = append(out, ib)
	}
	return out, nil
}
