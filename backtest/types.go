package backtest

import (
	"fmt"
	"strings"
	"time"
)

// Direction: +1 long, -1 short
type Direction int8

const (
	Long  Direction = +1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return fmt.Sprintf("Direction(%d)", int8(d))
}

func (d Direction) MarshalText() ([]byte, error) {
	if d != Long && d != Short {
		return nil, fmt.Errorf("backtest: invalid direction %d", int8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	dir, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

// ParseDirection accepts "long" or "short" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	}
	return 0, fmt.Errorf("backtest: unknown direction %q", s)
}

// ExitReason says why a position was closed.
type ExitReason string

const (
	ExitStopLoss         ExitReason = "stop-loss"
	ExitTrailingStopLoss ExitReason = "trailing-stop-loss"
	ExitProfitTarget     ExitReason = "profit-target"
	ExitRule             ExitReason = "exit-rule"
	ExitFinalize         ExitReason = "finalize"
)

// TimedValue is one entry in a per-bar series.
type TimedValue struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

func cloneSeries(s []TimedValue) []TimedValue {
	if s == nil {
		return nil
	}
	out := make([]TimedValue, len(s))
	copy(out, s)
	return out
}
