package backtest

import (
	"time"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/pkg/optional"
	"github.com/rustyeddy/tradesim/risk"
)

// Position is the open position as seen by strategy rules. Rules receive
// a copy; the engine owns the original.
type Position struct {
	Direction  Direction
	EntryTime  time.Time
	EntryPrice float64

	// Mark-to-market from the latest close.
	Profit        float64
	ProfitPct     float64
	Growth        float64
	HoldingPeriod int

	InitialStopPrice optional.Float
	CurStopPrice     optional.Float
	InitialUnitRisk  optional.Float
	InitialRiskPct   optional.Float
	CurRiskPct       optional.Float
	CurRMultiple     optional.Float
	ProfitTarget     optional.Float

	riskSeries      []TimedValue
	stopPriceSeries []TimedValue

	// the current stop came from the trailing rule
	trailed bool
}

// RiskSeries returns a copy of the recorded per-bar risk percentages.
func (p Position) RiskSeries() []TimedValue { return cloneSeries(p.riskSeries) }

// StopPriceSeries returns a copy of the recorded per-bar stop levels.
func (p Position) StopPriceSeries() []TimedValue { return cloneSeries(p.stopPriceSeries) }

func newPosition(dir Direction, b market.IndicatorBar) *Position {
	return &Position{
		Direction:  dir,
		EntryTime:  b.Time,
		EntryPrice: b.Open,
		Growth:     1,
	}
}

// stopFrom returns the stop level dist away from price against the trade.
func (p *Position) stopFrom(price, dist float64) float64 {
	if p.Direction == Long {
		return price - dist
	}
	return price + dist
}

// tighter reports whether stop a is closer to price than b, i.e. gives
// back less of the trade.
func (p *Position) tighter(a, b float64) bool {
	if p.Direction == Long {
		return a > b
	}
	return a < b
}

// setInitialStop applies a candidate stop level at entry. When both a fixed
// and a trailing stop are configured the tighter one wins; on a tie the
// fixed stop stays.
func (p *Position) setInitialStop(level float64, fromTrailing bool) {
	cur, ok := p.InitialStopPrice.Get()
	if ok && !p.tighter(level, cur) {
		return
	}
	p.InitialStopPrice = optional.Some(level)
	p.CurStopPrice = p.InitialStopPrice
	p.trailed = fromTrailing
}

// freezeRisk derives the entry-time risk from the initial stop.
func (p *Position) freezeRisk() {
	stop, ok := p.InitialStopPrice.Get()
	if !ok {
		return
	}
	p.InitialUnitRisk = optional.Some(risk.UnitRisk(p.EntryPrice, stop))
	p.InitialRiskPct = risk.RiskPct(p.EntryPrice, stop)
	p.CurRiskPct = p.InitialRiskPct
	p.CurRMultiple = risk.RMultiple(0, p.InitialUnitRisk)
}

// ratchet moves the stop to level when that is in the trade's favor.
func (p *Position) ratchet(level float64) {
	cur, ok := p.CurStopPrice.Get()
	if ok && !p.tighter(level, cur) {
		return
	}
	p.CurStopPrice = optional.Some(level)
	p.trailed = true
}

func (p *Position) stopHit(b market.IndicatorBar) (float64, bool) {
	stop, ok := p.CurStopPrice.Get()
	if !ok {
		return 0, false
	}
	if p.Direction == Long {
		return stop, b.Low <= stop
	}
	return stop, b.High >= stop
}

func (p *Position) targetHit(b market.IndicatorBar) (float64, bool) {
	target, ok := p.ProfitTarget.Get()
	if !ok {
		return 0, false
	}
	if p.Direction == Long {
		return target, b.High >= target
	}
	return target, b.Low <= target
}

func (p *Position) profitAt(price float64) (profit, pct, growth float64) {
	if p.Direction == Long {
		profit = price - p.EntryPrice
		growth = price / p.EntryPrice
	} else {
		profit = p.EntryPrice - price
		growth = p.EntryPrice / price
	}
	pct = profit / p.EntryPrice * 100
	return profit, pct, growth
}

// markToMarket updates the running figures from the bar's close and
// counts the bar as held.
func (p *Position) markToMarket(b market.IndicatorBar) {
	p.Profit, p.ProfitPct, p.Growth = p.profitAt(b.Close)
	if stop, ok := p.CurStopPrice.Get(); ok {
		p.CurRiskPct = risk.RiskPct(b.Close, stop)
	}
	p.CurRMultiple = risk.RMultiple(p.Profit, p.InitialUnitRisk)
	p.HoldingPeriod++
}

func (p *Position) recordRisk(t time.Time) {
	if v, ok := p.CurRiskPct.Get(); ok {
		p.riskSeries = append(p.riskSeries, TimedValue{Time: t, Value: v})
	}
}

func (p *Position) recordStop(t time.Time) {
	if v, ok := p.CurStopPrice.Get(); ok {
		p.stopPriceSeries = append(p.stopPriceSeries, TimedValue{Time: t, Value: v})
	}
}
