package backtest

import (
	"maps"
	"sort"

	"github.com/rustyeddy/tradesim/market"
)

// Params are named numeric strategy parameters.
type Params map[string]float64

// Get returns the named parameter or 0.
func (p Params) Get(name string) float64 { return p[name] }

// Merge returns a new Params with override applied on top of p.
func (p Params) Merge(override Params) Params {
	out := make(Params, len(p)+len(override))
	maps.Copy(out, p)
	maps.Copy(out, override)
	return out
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// EntryArgs are passed to the entry rule while flat.
type EntryArgs struct {
	Bar        market.IndicatorBar
	Lookback   Window
	Parameters Params
}

// PositionArgs are passed to the rules evaluated against a position: exit,
// stop-loss, trailing stop and profit target.
type PositionArgs struct {
	EntryPrice float64
	Position   Position
	Bar        market.IndicatorBar
	Lookback   Window
	Parameters Params
}

// EnterFunc requests a position. It may be called at most once per entry
// rule invocation.
type EnterFunc func(opts ...EnterOption) error

// ExitFunc requests that the open position be closed at the next bar's open.
type ExitFunc func() error

type entryRequest struct {
	direction Direction
	price     float64
	hasPrice  bool
}

// EnterOption configures an entry request.
type EnterOption func(*entryRequest)

// WithDirection sets the entry direction. The default is Long.
func WithDirection(d Direction) EnterOption {
	return func(r *entryRequest) { r.direction = d }
}

// WithEntryPrice makes the entry conditional: it is only confirmed on a
// bar whose range reaches price (high for long, low for short).
func WithEntryPrice(price float64) EnterOption {
	return func(r *entryRequest) {
		r.price = price
		r.hasPrice = true
	}
}

// Strategy is the one rule every strategy needs. The other rules are
// optional and detected by the interfaces below.
type Strategy interface {
	EntryRule(enter EnterFunc, args EntryArgs) error
}

// ExitRuler is implemented by strategies with a discretionary exit.
type ExitRuler interface {
	ExitRule(exit ExitFunc, args PositionArgs) error
}

// StopLosser returns the fixed stop distance from the entry price.
type StopLosser interface {
	StopLoss(args PositionArgs) (float64, error)
}

// TrailingStopLosser returns the trailing stop distance. It is evaluated
// at entry and again on every bar against the bar's close.
type TrailingStopLosser interface {
	TrailingStopLoss(args PositionArgs) (float64, error)
}

// ProfitTargeter returns the profit target distance from the entry price.
type ProfitTargeter interface {
	ProfitTarget(args PositionArgs) (float64, error)
}

// IndicatorPreparer computes indicator values once, before simulation.
type IndicatorPreparer interface {
	PrepIndicators(bars []market.Bar, params Params) ([]market.IndicatorBar, error)
}

// Parameterized strategies expose default parameters.
type Parameterized interface {
	Parameters() Params
}

// LookbackPeriodic strategies want more than one bar of history.
type LookbackPeriodic interface {
	LookbackPeriod() int
}

// Rule names one of the optional rules.
type Rule int

const (
	RuleExit Rule = iota
	RuleStop
	RuleTrailing
	RuleTarget
)

func (r Rule) String() string {
	switch r {
	case RuleExit:
		return "exit"
	case RuleStop:
		return "stop-loss"
	case RuleTrailing:
		return "trailing-stop-loss"
	case RuleTarget:
		return "profit-target"
	}
	return "unknown"
}

// RuleEnabler strategies decide per run which of their optional rules are
// active, given the run's merged parameters. A rule reported false is
// treated as absent, so a sweep can switch a stop off and on.
type RuleEnabler interface {
	RuleEnabled(rule Rule, params Params) bool
}

// StrategyFuncs builds a Strategy out of plain functions. Nil fields are
// treated as rules the strategy does not have; Enabled, when set, can
// switch off a non-nil rule for a given set of parameters.
type StrategyFuncs struct {
	Params   Params
	Lookback int

	Enabled func(rule Rule, params Params) bool

	Prep     func(bars []market.Bar, params Params) ([]market.IndicatorBar, error)
	Entry    func(enter EnterFunc, args EntryArgs) error
	Exit     func(exit ExitFunc, args PositionArgs) error
	Stop     func(args PositionArgs) (float64, error)
	Trailing func(args PositionArgs) (float64, error)
	Target   func(args PositionArgs) (float64, error)
}

func (s *StrategyFuncs) EntryRule(enter EnterFunc, args EntryArgs) error {
	if s.Entry == nil {
		return nil
	}
	return s.Entry(enter, args)
}

func (s *StrategyFuncs) Parameters() Params { return s.Params }

func (s *StrategyFuncs) LookbackPeriod() int { return s.Lookback }

func (s *StrategyFuncs) rules() rules {
	return rules{
		entry:    s.EntryRule,
		exit:     s.Exit,
		stop:     s.Stop,
		trailing: s.Trailing,
		target:   s.Target,
		prep:     s.Prep,
		params:   s.Params,
		lookback: s.Lookback,
		enabled:  s.Enabled,
	}
}

type distanceFunc func(args PositionArgs) (float64, error)

// rules is the resolved rule set of a strategy.
type rules struct {
	entry    func(enter EnterFunc, args EntryArgs) error
	exit     func(exit ExitFunc, args PositionArgs) error
	stop     distanceFunc
	trailing distanceFunc
	target   distanceFunc
	prep     func(bars []market.Bar, params Params) ([]market.IndicatorBar, error)
	params   Params
	lookback int
	enabled  func(rule Rule, params Params) bool
}

// withParams drops the optional rules the strategy disables for params.
func (r rules) withParams(params Params) rules {
	if r.enabled == nil {
		return r
	}
	if !r.enabled(RuleExit, params) {
		r.exit = nil
	}
	if !r.enabled(RuleStop, params) {
		r.stop = nil
	}
	if !r.enabled(RuleTrailing, params) {
		r.trailing = nil
	}
	if !r.enabled(RuleTarget, params) {
		r.target = nil
	}
	return r
}

type ruleSource interface {
	rules() rules
}

func resolveRules(s Strategy) rules {
	if rs, ok := s.(ruleSource); ok {
		return rs.rules()
	}

	r := rules{entry: s.EntryRule}
	if v, ok := s.(ExitRuler); ok {
		r.exit = v.ExitRule
	}
	if v, ok := s.(StopLosser); ok {
		r.stop = v.StopLoss
	}
	if v, ok := s.(TrailingStopLosser); ok {
		r.trailing = v.TrailingStopLoss
	}
	if v, ok := s.(ProfitTargeter); ok {
		r.target = v.ProfitTarget
	}
	if v, ok := s.(IndicatorPreparer); ok {
		r.prep = v.PrepIndicators
	}
	if v, ok := s.(Parameterized); ok {
		r.params = v.Parameters()
	}
	if v, ok := s.(LookbackPeriodic); ok {
		r.lookback = v.LookbackPeriod()
	}
	if v, ok := s.(RuleEnabler); ok {
		r.enabled = v.RuleEnabled
	}
	return r
}
