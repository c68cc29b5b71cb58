package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/pkg/optional"
)

func trade(profit, growth float64, holding int) backtest.Trade {
	return backtest.Trade{
		Direction:     backtest.Long,
		EntryTime:     time.Date(2018, 10, 25, 0, 0, 0, 0, time.UTC),
		ExitTime:      time.Date(2018, 10, 30, 0, 0, 0, 0, time.UTC),
		Profit:        profit,
		Growth:        growth,
		HoldingPeriod: holding,
		ExitReason:    backtest.ExitRule,
	}
}

func mixedTrades() []backtest.Trade {
	t1 := trade(10, 2, 5)
	t1.RiskPct = optional.Some(20)
	t1.RMultiple = optional.Some(1)

	t2 := trade(-10, 0.5, 3)
	t2.RiskPct = optional.Some(10)
	t2.RMultiple = optional.Some(-1)

	t3 := trade(5, 1.5, 2)
	t3.RMultiple = optional.Some(2)

	return []backtest.Trade{t1, t2, t3}
}

func TestAnalyze_NoTrades(t *testing.T) {
	t.Parallel()

	for _, capital := range []float64{1000, 1200, 2000} {
		a := Analyze(capital, nil)
		assert.Equal(t, capital, a.StartingCapital)
		assert.Equal(t, capital, a.FinalCapital)
		assert.Equal(t, 0.0, a.Profit)
		assert.Equal(t, 0.0, a.ProfitPct)
		assert.Equal(t, 1.0, a.Growth)
		assert.Equal(t, 0, a.TotalTrades)
		assert.Equal(t, 0, a.BarCount)
		assert.Equal(t, 0.0, a.MaxDrawdown)
		assert.Equal(t, 0.0, a.MaxDrawdownPct)
		assert.False(t, a.MaxRiskPct.Valid)
		assert.False(t, a.Expectency.Valid)
		assert.False(t, a.ProfitFactor.Valid)
		assert.False(t, a.ReturnOnAccount.Valid)
		assert.Equal(t, 0.0, a.AverageProfitPerTrade)
	}
}

func TestAnalyze_SingleWinner(t *testing.T) {
	t.Parallel()

	a := Analyze(10, []backtest.Trade{trade(10, 2, 5)})
	assert.Equal(t, 20.0, a.FinalCapital)
	assert.Equal(t, 10.0, a.Profit)
	assert.Equal(t, 100.0, a.ProfitPct)
	assert.Equal(t, 2.0, a.Growth)
	assert.Equal(t, 5, a.BarCount)
	assert.Equal(t, 0.0, a.MaxDrawdown)
	assert.Equal(t, 0.0, a.MaxDrawdownPct)
	assert.False(t, a.MaxRiskPct.Valid)
	assert.False(t, a.ProfitFactor.Valid, "no losses means no profit factor")
	assert.Equal(t, 100.0, a.PercentProfitable)
}

func TestAnalyze_MultipleWinners(t *testing.T) {
	t.Parallel()

	a := Analyze(10, []backtest.Trade{trade(10, 2, 5), trade(40, 3, 10)})
	assert.Equal(t, 60.0, a.FinalCapital)
	assert.Equal(t, 50.0, a.Profit)
	assert.Equal(t, 500.0, a.ProfitPct)
	assert.Equal(t, 6.0, a.Growth)
	assert.Equal(t, 15, a.BarCount)
	assert.Equal(t, 2, a.TotalTrades)
}

func TestAnalyze_Mixed(t *testing.T) {
	t.Parallel()

	a := Analyze(1000, mixedTrades())

	assert.InDelta(t, 1500, a.FinalCapital, 1e-9)
	assert.InDelta(t, 500, a.Profit, 1e-9)
	assert.InDelta(t, 50, a.ProfitPct, 1e-9)
	assert.Equal(t, 3, a.TotalTrades)
	assert.Equal(t, 10, a.BarCount)
	assert.InDelta(t, -1000, a.MaxDrawdown, 1e-9)
	assert.InDelta(t, -50, a.MaxDrawdownPct, 1e-9)
	assert.Equal(t, optional.Some(20), a.MaxRiskPct)

	require.True(t, a.Expectency.Valid)
	assert.InDelta(t, 2.0/3, a.Expectency.Float64, 1e-9)
	require.True(t, a.RMultipleStdDev.Valid)
	assert.InDelta(t, 1.2472, a.RMultipleStdDev.Float64, 1e-4)
	require.True(t, a.SystemQuality.Valid)
	assert.InDelta(t, 0.5345, a.SystemQuality.Float64, 1e-4)

	require.True(t, a.ProfitFactor.Valid)
	assert.InDelta(t, 1.5, a.ProfitFactor.Float64, 1e-9)
	require.True(t, a.ReturnOnAccount.Valid)
	assert.InDelta(t, 1, a.ReturnOnAccount.Float64, 1e-9)

	assert.Equal(t, 2, a.NumWinningTrades)
	assert.Equal(t, 1, a.NumLosingTrades)
	assert.InDelta(t, 2.0/3, a.ProportionProfitable, 1e-9)
	assert.InDelta(t, 200.0/3, a.PercentProfitable, 1e-9)
	assert.InDelta(t, 7.5, a.AverageWinningTrade, 1e-9)
	assert.InDelta(t, -10, a.AverageLosingTrade, 1e-9)
	assert.InDelta(t, 500.0/3, a.AverageProfitPerTrade, 1e-9)
	assert.InDelta(t, 5-10.0/3, a.ExpectedValue, 1e-9)
}

func TestAnalyze_ZeroStdDev(t *testing.T) {
	t.Parallel()

	t1 := trade(10, 1.1, 1)
	t1.RMultiple = optional.Some(1)
	t2 := trade(10, 1.1, 1)
	t2.RMultiple = optional.Some(1)

	a := Analyze(100, []backtest.Trade{t1, t2})
	assert.Equal(t, optional.Some(1), a.Expectency)
	assert.Equal(t, optional.Some(0), a.RMultipleStdDev)
	assert.False(t, a.SystemQuality.Valid)
}

func TestEquityCurve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{1000}, EquityCurve(1000, nil))

	got := EquityCurve(1000, mixedTrades())
	want := []float64{1000, 2000, 1000, 1500}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}
}

func TestDrawdown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{0}, Drawdown(1000, nil))

	got := Drawdown(1000, mixedTrades())
	want := []float64{0, 0, -1000, -500}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}

	// reset at a new peak
	got = Drawdown(100, []backtest.Trade{trade(-50, 0.5, 1), trade(150, 4, 1)})
	assert.Equal(t, []float64{0, -50, 0}, got)
}

func TestObjectiveByName(t *testing.T) {
	t.Parallel()

	for _, name := range ObjectiveNames() {
		fn, err := ObjectiveByName(name)
		require.NoError(t, err, name)
		assert.NotPanics(t, func() { fn(nil) }, name)
	}

	fn, err := ObjectiveByName("profit")
	require.NoError(t, err)
	assert.InDelta(t, 5000, fn(mixedTrades()), 1e-6)

	fn, err = ObjectiveByName("trades")
	require.NoError(t, err)
	assert.Equal(t, 3.0, fn(mixedTrades()))

	_, err = ObjectiveByName("sharpe")
	assert.Error(t, err)
}
