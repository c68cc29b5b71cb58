package backtest

import (
	"time"

	"github.com/rustyeddy/tradesim/pkg/optional"
	"github.com/rustyeddy/tradesim/risk"
)

// Trade is a closed position.
type Trade struct {
	Direction     Direction      `json:"direction"`
	EntryTime     time.Time      `json:"entryTime"`
	EntryPrice    float64        `json:"entryPrice"`
	ExitTime      time.Time      `json:"exitTime"`
	ExitPrice     float64        `json:"exitPrice"`
	Profit        float64        `json:"profit"`
	ProfitPct     float64        `json:"profitPct"`
	Growth        float64        `json:"growth"`
	RiskPct       optional.Float `json:"riskPct"`
	RMultiple     optional.Float `json:"rmultiple"`
	RiskSeries    []TimedValue   `json:"riskSeries,omitempty"`
	HoldingPeriod int            `json:"holdingPeriod"`
	ExitReason    ExitReason     `json:"exitReason"`

	StopPrice       optional.Float `json:"stopPrice"`
	StopPriceSeries []TimedValue   `json:"stopPriceSeries,omitempty"`
	ProfitTarget    optional.Float `json:"profitTarget"`
}

// close turns the position into a Trade exiting at price.
func (p *Position) close(exitTime time.Time, price float64, reason ExitReason) Trade {
	profit, pct, growth := p.profitAt(price)
	return Trade{
		Direction:       p.Direction,
		EntryTime:       p.EntryTime,
		EntryPrice:      p.EntryPrice,
		ExitTime:        exitTime,
		ExitPrice:       price,
		Profit:          profit,
		ProfitPct:       pct,
		Growth:          growth,
		RiskPct:         p.InitialRiskPct,
		RMultiple:       risk.RMultiple(profit, p.InitialUnitRisk),
		RiskSeries:      cloneSeries(p.riskSeries),
		HoldingPeriod:   p.HoldingPeriod,
		ExitReason:      reason,
		StopPrice:       p.InitialStopPrice,
		StopPriceSeries: cloneSeries(p.stopPriceSeries),
		ProfitTarget:    p.ProfitTarget,
	}
}
