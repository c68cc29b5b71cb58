package backtest

import "errors"

var (
	// ErrNoBars is returned for an empty input series.
	ErrNoBars = errors.New("backtest: no input bars")

	// ErrInsufficientBars is returned when the input is shorter than the
	// lookback period.
	ErrInsufficientBars = errors.New("backtest: input series shorter than lookback period")

	// ErrEnterOutsideNone is returned when a strategy asks to enter while a
	// position is pending or open.
	ErrEnterOutsideNone = errors.New("backtest: enter called while not flat")

	// ErrExitOutsidePosition is returned when a strategy asks to exit while
	// no position is open.
	ErrExitOutsidePosition = errors.New("backtest: exit called without an open position")

	// ErrInvalidDirection is returned when an entry asks for a direction
	// other than Long or Short.
	ErrInvalidDirection = errors.New("backtest: invalid entry direction")

	// ErrStrategyRequired is returned for a nil strategy.
	ErrStrategyRequired = errors.New("backtest: Strategy is required")
)
