package strategies

import "github.com/rustyeddy/tradesim/backtest"

// BuyAndHold enters on the first bar and holds to the end of the data.
// It is the baseline other strategies are measured against.
func BuyAndHold(override backtest.Params) *backtest.StrategyFuncs {
	p := backtest.Params{"stop-pct": 0}.Merge(override)
	return &backtest.StrategyFuncs{
		Params:  p,
		Enabled: enabledWhenPositive(map[backtest.Rule]string{backtest.RuleStop: "stop-pct"}),
		Entry: func(enter backtest.EnterFunc, _ backtest.EntryArgs) error {
			return enter()
		},
		Stop: pctOfEntry("stop-pct"),
	}
}
