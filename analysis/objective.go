package analysis

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/tradesim/backtest"
)

// Objective maps a trade list to a single performance number.
type Objective func(trades []backtest.Trade) float64

// objectiveCapital is the notional capital objectives compound from.
const objectiveCapital = 10000

var objectives = map[string]Objective{
	"profit": func(t []backtest.Trade) float64 {
		return Analyze(objectiveCapital, t).Profit
	},
	"profit-pct": func(t []backtest.Trade) float64 {
		return Analyze(objectiveCapital, t).ProfitPct
	},
	"expectency": func(t []backtest.Trade) float64 {
		return Analyze(objectiveCapital, t).Expectency.Or(0)
	},
	"system-quality": func(t []backtest.Trade) float64 {
		return Analyze(objectiveCapital, t).SystemQuality.Or(0)
	},
	"profit-factor": func(t []backtest.Trade) float64 {
		return Analyze(objectiveCapital, t).ProfitFactor.Or(0)
	},
	"return-on-account": func(t []backtest.Trade) float64 {
		return Analyze(objectiveCapital, t).ReturnOnAccount.Or(0)
	},
	"percent-profitable": func(t []backtest.Trade) float64 {
		return Analyze(objectiveCapital, t).PercentProfitable
	},
	"max-drawdown-pct": func(t []backtest.Trade) float64 {
		return Analyze(objectiveCapital, t).MaxDrawdownPct
	},
	"trades": func(t []backtest.Trade) float64 {
		return float64(len(t))
	},
}

// ObjectiveByName looks up a built-in objective.
func ObjectiveByName(name string) (Objective, error) {
	fn, ok := objectives[name]
	if !ok {
		return nil, fmt.Errorf("analysis: unknown objective %q (have %v)", name, ObjectiveNames())
	}
	return fn, nil
}

// ObjectiveNames lists the built-in objectives in sorted order.
func ObjectiveNames() []string {
	names := make([]string, 0, len(objectives))
	for k := range objectives {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
