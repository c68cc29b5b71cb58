package strategies

import (
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/market"
)

var EMACrossDefaults = backtest.Params{
	"fast":     10,
	"slow":     30,
	"atr":      14,
	"atr-mult": 2,
	"short":    0, // 1 trades the downward cross short
}

// EMACross enters when the fast EMA crosses the slow one and exits on the
// opposite cross, with an ATR based trailing stop when atr-mult > 0.
// It looks back two bars to see the cross.
func EMACross(override backtest.Params) *backtest.StrategyFuncs {
	p := EMACrossDefaults.Merge(override)

	return &backtest.StrategyFuncs{
		Params:   p,
		Lookback: 2,
		Enabled:  enabledWhenPositive(map[backtest.Rule]string{backtest.RuleTrailing: "atr-mult"}),
		Prep: func(bars []market.Bar, params backtest.Params) ([]market.IndicatorBar, error) {
			fast, err := period(params, "fast")
			if err != nil {
				return nil, err
			}
			slow, err := period(params, "slow")
			if err != nil {
				return nil, err
			}
			specs := []indicators.Spec{
				{Name: "fast", Kind: indicators.EMA, Period: fast},
				{Name: "slow", Kind: indicators.EMA, Period: slow},
			}
			if params.Get("atr-mult") > 0 {
				n, err := period(params, "atr")
				if err != nil {
					return nil, err
				}
				specs = append(specs, indicators.Spec{Name: "atr", Kind: indicators.ATR, Period: n})
			}
			return indicators.Apply(bars, specs...)
		},
		Entry: func(enter backtest.EnterFunc, a backtest.EntryArgs) error {
			switch cross(a.Lookback) {
			case backtest.Long:
				return enter()
			case backtest.Short:
				if a.Parameters.Get("short") > 0 {
					return enter(backtest.WithDirection(backtest.Short))
				}
			}
			return nil
		},
		Exit: func(exit backtest.ExitFunc, a backtest.PositionArgs) error {
			if c := cross(a.Lookback); c != 0 && c != a.Position.Direction {
				return exit()
			}
			return nil
		},
		Trailing: func(a backtest.PositionArgs) (float64, error) {
			atr, _ := a.Bar.Indicator("atr")
			return atr * a.Parameters.Get("atr-mult"), nil
		},
	}
}

// cross returns Long when fast moved above slow on the latest bar, Short
// when it moved below, 0 otherwise.
func cross(w backtest.Window) backtest.Direction {
	if w.Len() < 2 {
		return 0
	}
	prev, cur := w.Ago(1), w.Latest()
	pf, _ := prev.Indicator("fast")
	ps, _ := prev.Indicator("slow")
	cf, _ := cur.Indicator("fast")
	cs, _ := cur.Indicator("slow")
	switch {
	case pf <= ps && cf > cs:
		return backtest.Long
	case pf >= ps && cf < cs:
		return backtest.Short
	}
	return 0
}
