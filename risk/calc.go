// Package risk turns a stop distance into percentage risk and reward
// multiples. Every ratio whose denominator can be zero returns an
// optional.Float instead of NaN or Inf.
package risk

import (
	"github.com/rustyeddy/tradesim/pkg/optional"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// UnitRisk is the price distance from entry to stop.
func UnitRisk(entry, stop float64) float64 {
	return abs(entry - stop)
}

// RiskPct is the distance from price to stop as a percentage of price.
func RiskPct(price, stop float64) optional.Float {
	if price == 0 {
		return optional.Float{}
	}
	return optional.Some(abs(price-stop) / price * 100)
}

// RMultiple expresses profit as a multiple of the initial unit risk.
// It is unset when there is no risk to divide by.
func RMultiple(profit float64, unitRisk optional.Float) optional.Float {
	r, ok := unitRisk.Get()
	if !ok || r == 0 {
		return optional.Float{}
	}
	return optional.Some(profit / r)
}
