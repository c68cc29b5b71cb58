package strategies

import (
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/market"
)

// MeanReversionDefaults: 30 bar SMA, no stop, no target.
var MeanReversionDefaults = backtest.Params{
	"sma":          30,
	"stop-pct":     0,
	"trailing-pct": 0,
	"target-pct":   0,
}

// MeanReversion buys when the close drops below its SMA and sells when it
// recovers above it. Stop, trailing stop and target are percentages and
// are only active in runs where their parameter is positive.
func MeanReversion(override backtest.Params) *backtest.StrategyFuncs {
	p := MeanReversionDefaults.Merge(override)
	enabled := enabledWhenPositive(map[backtest.Rule]string{
		backtest.RuleStop:     "stop-pct",
		backtest.RuleTrailing: "trailing-pct",
		backtest.RuleTarget:   "target-pct",
	})

	return &backtest.StrategyFuncs{
		Params:  p,
		Enabled: enabled,
		Prep: func(bars []market.Bar, params backtest.Params) ([]market.IndicatorBar, error) {
			n, err := period(params, "sma")
			if err != nil {
				return nil, err
			}
			return indicators.Apply(bars, indicators.Spec{Name: "sma", Kind: indicators.SMA, Period: n})
		},
		Entry: func(enter backtest.EnterFunc, a backtest.EntryArgs) error {
			if sma, ok := a.Bar.Indicator("sma"); ok && a.Bar.Close < sma {
				return enter()
			}
			return nil
		},
		Exit: func(exit backtest.ExitFunc, a backtest.PositionArgs) error {
			if sma, ok := a.Bar.Indicator("sma"); ok && a.Bar.Close > sma {
				return exit()
			}
			return nil
		},
		Stop:     pctOfEntry("stop-pct"),
		Trailing: pctOfClose("trailing-pct"),
		Target:   pctOfEntry("target-pct"),
	}
}
