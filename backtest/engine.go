package backtest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/pkg/optional"
)

// Options controls a single run.
type Options struct {
	// Parameters override the strategy's defaults for this run.
	Parameters Params

	// LookbackPeriod overrides the strategy's lookback period when > 0.
	LookbackPeriod int

	// RecordStopPrice keeps the per-bar stop level on each trade.
	RecordStopPrice bool

	// RecordRisk keeps the per-bar risk percentage on each trade.
	RecordRisk bool

	// DistinguishTrailingStop reports stops moved by the trailing rule
	// as "trailing-stop-loss" instead of "stop-loss".
	DistinguishTrailingStop bool

	Logger *zap.Logger
}

type state int

const (
	stateNone state = iota
	stateEnter
	statePosition
	stateExit
)

func (s state) String() string {
	switch s {
	case stateNone:
		return "none"
	case stateEnter:
		return "enter"
	case statePosition:
		return "position"
	case stateExit:
		return "exit"
	}
	return "unknown"
}

// engine is the state of one run.
type engine struct {
	rules  rules
	params Params
	opts   Options
	log    *zap.Logger

	state   state
	request entryRequest
	pos     *Position
	trades  []Trade

	// violation is sticky: set by enter/exit when called in the wrong
	// state, checked after every callback.
	violation error
}

// Run simulates strategy over bars and returns the closed trades in the
// order they closed. On any error no trades are returned.
//
// Bars must be ordered by time. A position still open after the last bar
// is closed at that bar's close with reason "finalize".
func Run(strategy Strategy, bars []market.Bar, opts Options) ([]Trade, error) {
	if strategy == nil {
		return nil, ErrStrategyRequired
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	r := resolveRules(strategy)
	period := opts.LookbackPeriod
	if period <= 0 {
		period = r.lookback
	}
	if period <= 0 {
		period = 1
	}
	if len(bars) < period {
		return nil, fmt.Errorf("%w: have %d bars, lookback period is %d", ErrInsufficientBars, len(bars), period)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	params := r.params.Merge(opts.Parameters)
	e := &engine{
		rules:  r.withParams(params),
		params: params,
		opts:   opts,
		log:    log,
	}

	series := market.Wrap(bars)
	if r.prep != nil {
		prepped, err := r.prep(bars, e.params)
		if err != nil {
			return nil, err
		}
		series = prepped
	}

	if err := e.run(series, period); err != nil {
		return nil, err
	}
	return e.trades, nil
}

func (e *engine) run(series []market.IndicatorBar, period int) error {
	lb := newLookback(period)

	for _, b := range series {
		lb.push(b)
		if !lb.full() {
			continue
		}

		var err error
		switch e.state {
		case stateNone:
			err = e.evalEntry(b, lb.snapshot())
		case stateEnter:
			err = e.confirmEntry(b, lb.snapshot())
		case statePosition:
			err = e.evalPosition(b, lb.snapshot())
		case stateExit:
			e.closePosition(b, b.Open, ExitRule)
		}
		if err != nil {
			return err
		}
	}

	if e.pos != nil && len(series) > 0 {
		last := series[len(series)-1]
		e.closePosition(last, last.Close, ExitFinalize)
	}
	return nil
}

// check returns a pending precondition violation, else err.
func (e *engine) check(err error) error {
	if e.violation != nil {
		return e.violation
	}
	return err
}

func (e *engine) enter(opts ...EnterOption) error {
	if e.state != stateNone {
		if e.violation == nil {
			e.violation = fmt.Errorf("%w (state %s)", ErrEnterOutsideNone, e.state)
		}
		return e.violation
	}
	req := entryRequest{direction: Long}
	for _, opt := range opts {
		opt(&req)
	}
	if req.direction != Long && req.direction != Short {
		if e.violation == nil {
			e.violation = fmt.Errorf("%w: %d", ErrInvalidDirection, int8(req.direction))
		}
		return e.violation
	}
	e.request = req
	e.state = stateEnter
	return nil
}

func (e *engine) exit() error {
	if e.state != statePosition {
		if e.violation == nil {
			e.violation = fmt.Errorf("%w (state %s)", ErrExitOutsidePosition, e.state)
		}
		return e.violation
	}
	e.state = stateExit
	return nil
}

func (e *engine) evalEntry(b market.IndicatorBar, w Window) error {
	err := e.rules.entry(e.enter, EntryArgs{Bar: b, Lookback: w, Parameters: e.params})
	return e.check(err)
}

func (e *engine) positionArgs(b market.IndicatorBar, w Window) PositionArgs {
	return PositionArgs{
		EntryPrice: e.pos.EntryPrice,
		Position:   *e.pos,
		Bar:        b,
		Lookback:   w,
		Parameters: e.params,
	}
}

func (e *engine) confirmEntry(b market.IndicatorBar, w Window) error {
	req := e.request
	if req.hasPrice {
		if req.direction == Long && b.High < req.price {
			return nil
		}
		if req.direction == Short && b.Low > req.price {
			return nil
		}
	}

	pos := newPosition(req.direction, b)
	e.pos = pos

	if e.rules.stop != nil {
		dist, err := e.rules.stop(e.positionArgs(b, w))
		if err = e.check(err); err != nil {
			return err
		}
		pos.setInitialStop(pos.stopFrom(pos.EntryPrice, dist), false)
	}
	if e.rules.trailing != nil {
		dist, err := e.rules.trailing(e.positionArgs(b, w))
		if err = e.check(err); err != nil {
			return err
		}
		pos.setInitialStop(pos.stopFrom(pos.EntryPrice, dist), true)
	}
	if e.rules.target != nil {
		dist, err := e.rules.target(e.positionArgs(b, w))
		if err = e.check(err); err != nil {
			return err
		}
		if pos.Direction == Long {
			pos.ProfitTarget = optional.Some(pos.EntryPrice + dist)
		} else {
			pos.ProfitTarget = optional.Some(pos.EntryPrice - dist)
		}
	}

	pos.freezeRisk()
	if e.opts.RecordRisk {
		pos.recordRisk(b.Time)
	}
	if e.opts.RecordStopPrice {
		pos.recordStop(b.Time)
	}

	e.state = statePosition
	e.log.Debug("position opened",
		zap.Time("time", b.Time),
		zap.Stringer("direction", pos.Direction),
		zap.Float64("entry", pos.EntryPrice),
		zap.Stringer("stop", pos.InitialStopPrice),
		zap.Stringer("target", pos.ProfitTarget),
	)
	return nil
}

func (e *engine) evalPosition(b market.IndicatorBar, w Window) error {
	pos := e.pos

	// 1) stop breach on the bar's extreme
	if stop, hit := pos.stopHit(b); hit {
		reason := ExitStopLoss
		if e.opts.DistinguishTrailingStop && pos.trailed {
			reason = ExitTrailingStopLoss
		}
		e.closePosition(b, stop, reason)
		return nil
	}

	// 2) trailing stop follows the close, never loosens
	if e.rules.trailing != nil {
		dist, err := e.rules.trailing(e.positionArgs(b, w))
		if err = e.check(err); err != nil {
			return err
		}
		pos.ratchet(pos.stopFrom(b.Close, dist))
	}
	if e.opts.RecordStopPrice {
		pos.recordStop(b.Time)
	}

	// 3) profit target
	if target, hit := pos.targetHit(b); hit {
		e.closePosition(b, target, ExitProfitTarget)
		return nil
	}

	// 4) mark to market
	pos.markToMarket(b)
	if e.opts.RecordRisk {
		pos.recordRisk(b.Time)
	}

	// 5) discretionary exit, filled at the next bar's open
	if e.rules.exit != nil {
		err := e.rules.exit(e.exit, e.positionArgs(b, w))
		if err = e.check(err); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) closePosition(b market.IndicatorBar, price float64, reason ExitReason) {
	t := e.pos.close(b.Time, price, reason)
	e.trades = append(e.trades, t)
	e.pos = nil
	e.state = stateNone

	e.log.Debug("position closed",
		zap.Time("time", t.ExitTime),
		zap.Stringer("direction", t.Direction),
		zap.Float64("exit", t.ExitPrice),
		zap.Float64("profit", t.Profit),
		zap.String("reason", string(reason)),
		zap.Int("holding", t.HoldingPeriod),
	)
}
