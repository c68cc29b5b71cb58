package analysis

import "github.com/rustyeddy/tradesim/backtest"

// EquityCurve returns capital after each trade, starting with
// startingCapital, so its length is len(trades)+1.
func EquityCurve(startingCapital float64, trades []backtest.Trade) []float64 {
	out := make([]float64, 0, len(trades)+1)
	capital := startingCapital
	out = append(out, capital)
	for _, t := range trades {
		capital *= t.Growth
		out = append(out, capital)
	}
	return out
}

// Drawdown returns the distance below the running peak after each trade,
// starting with 0. Values are <= 0 and reset to 0 at every new peak.
func Drawdown(startingCapital float64, trades []backtest.Trade) []float64 {
	out := make([]float64, 0, len(trades)+1)
	out = append(out, 0)

	capital := startingCapital
	peak := startingCapital
	for _, t := range trades {
		capital *= t.Growth
		if capital < peak {
			out = append(out, capital-peak)
			continue
		}
		peak = capital
		out = append(out, 0)
	}
	return out
}
