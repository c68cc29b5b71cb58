// Package strategies holds the built-in strategies the CLI can run by name.
package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/tradesim/backtest"
)

// Factory builds a strategy with params applied over its defaults.
type Factory func(params backtest.Params) backtest.Strategy

var registry = map[string]Factory{
	"mean-reversion": func(p backtest.Params) backtest.Strategy { return MeanReversion(p) },
	"ema-cross":      func(p backtest.Params) backtest.Strategy { return EMACross(p) },
	"buy-and-hold":   func(p backtest.Params) backtest.Strategy { return BuyAndHold(p) },
}

// Register adds or replaces a named strategy.
func Register(name string, f Factory) {
	registry[name] = f
}

// ByName builds the named strategy with params applied over its defaults.
func ByName(name string, params backtest.Params) (backtest.Strategy, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(params), nil
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// pctOfEntry returns a distance rule that is param percent of the entry price.
func pctOfEntry(param string) func(backtest.PositionArgs) (float64, error) {
	return func(a backtest.PositionArgs) (float64, error) {
		return a.EntryPrice * a.Parameters.Get(param) / 100, nil
	}
}

// pctOfClose returns a distance rule that is param percent of the close.
func pctOfClose(param string) func(backtest.PositionArgs) (float64, error) {
	return func(a backtest.PositionArgs) (float64, error) {
		return a.Bar.Close * a.Parameters.Get(param) / 100, nil
	}
}

// enabledWhenPositive enables each listed rule only while its parameter is
// positive in the run's parameters. Unlisted rules stay enabled.
func enabledWhenPositive(gates map[backtest.Rule]string) func(backtest.Rule, backtest.Params) bool {
	return func(r backtest.Rule, p backtest.Params) bool {
		name, ok := gates[r]
		return !ok || p.Get(name) > 0
	}
}

// period reads an integer period parameter.
func period(p backtest.Params, name string) (int, error) {
	v := int(p.Get(name))
	if v <= 0 {
		return 0, fmt.Errorf("strategies: %s must be positive, got %v", name, p.Get(name))
	}
	return v, nil
}
