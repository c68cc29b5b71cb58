package optimize

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/strategies"
)

func flatBars(n int) []market.Bar {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{Time: start.AddDate(0, 0, i), Open: 100, High: 100, Low: 100, Close: 100}
	}
	return bars
}

// holdStrategy holds for "a" bars and sets an unreachable target "b"
// points away, so both parameters show up on the first trade.
func holdStrategy() *backtest.StrategyFuncs {
	return &backtest.StrategyFuncs{
		Params: backtest.Params{"a": 1, "b": 1},
		Entry: func(enter backtest.EnterFunc, _ backtest.EntryArgs) error {
			return enter()
		},
		Exit: func(exit backtest.ExitFunc, args backtest.PositionArgs) error {
			if float64(args.Position.HoldingPeriod) >= args.Parameters.Get("a") {
				return exit()
			}
			return nil
		},
		Target: func(args backtest.PositionArgs) (float64, error) {
			return args.Parameters.Get("b"), nil
		},
	}
}

// bowl peaks at a=3, b=7.
func bowl(trades []backtest.Trade) float64 {
	if len(trades) == 0 {
		return -1000
	}
	a := float64(trades[0].HoldingPeriod)
	b := trades[0].ProfitTarget.Float64 - trades[0].EntryPrice
	return -((a-3)*(a-3) + (b-7)*(b-7))
}

func gridDefs() []ParameterDef {
	return []ParameterDef{
		{Name: "a", Start: 1, End: 5, Step: 1},
		{Name: "b", Start: 5, End: 9, Step: 1},
	}
}

func TestOptimize_Grid(t *testing.T) {
	t.Parallel()

	res, err := Optimize(context.Background(), holdStrategy(), gridDefs(), bowl, flatBars(30), Options{
		RecordAllResults: true,
	})
	require.NoError(t, err)

	assert.Equal(t, backtest.Params{"a": 3, "b": 7}, res.BestParameters)
	assert.Equal(t, 0.0, res.Best.Metric)
	require.Len(t, res.AllResults, 25)
	for i, r := range res.AllResults {
		assert.Equal(t, i, r.Iteration)
	}
	assert.Equal(t, backtest.Params{"a": 1, "b": 5}, res.AllResults[0].Parameters)
	assert.Equal(t, backtest.Params{"a": 1, "b": 6}, res.AllResults[1].Parameters)
	assert.Zero(t, res.Duration)
}

func TestOptimize_GridMinimizeTiesPickEarliest(t *testing.T) {
	t.Parallel()

	res, err := Optimize(context.Background(), holdStrategy(), gridDefs(), bowl, flatBars(30), Options{
		SearchDirection: Min,
	})
	require.NoError(t, err)
	assert.Equal(t, -8.0, res.Best.Metric)
	assert.Equal(t, 0, res.Best.Iteration)
	assert.Equal(t, backtest.Params{"a": 1, "b": 5}, res.BestParameters)
	assert.Nil(t, res.AllResults)
}

func TestOptimize_WorkersDoNotChangeResults(t *testing.T) {
	t.Parallel()

	run := func(workers int) Result {
		res, err := Optimize(context.Background(), holdStrategy(), gridDefs(), bowl, flatBars(30), Options{
			Workers:          workers,
			RecordAllResults: true,
		})
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, run(1), run(8))
}

func TestOptimize_HillClimb(t *testing.T) {
	t.Parallel()

	run := func(seed uint64) Result {
		res, err := Optimize(context.Background(), holdStrategy(), gridDefs(), bowl, flatBars(30), Options{
			Type:              HillClimb,
			NumStartingPoints: 3,
			Rand:              rand.New(rand.NewPCG(seed, seed)),
			RecordAllResults:  true,
			RecordDuration:    true,
		})
		require.NoError(t, err)
		return res
	}

	res := run(1)
	assert.Equal(t, backtest.Params{"a": 3, "b": 7}, res.BestParameters)
	assert.LessOrEqual(t, len(res.AllResults), 25)
	assert.Positive(t, res.Duration)

	again := run(1)
	again.Duration, res.Duration = 0, 0
	assert.Equal(t, res, again, "same seed, same search")
}

func TestOptimize_HillClimbNeedsRand(t *testing.T) {
	t.Parallel()

	_, err := Optimize(context.Background(), holdStrategy(), gridDefs(), bowl, flatBars(30), Options{Type: HillClimb})
	assert.ErrorIs(t, err, ErrRandRequired)
}

func TestOptimize_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bars := flatBars(10)

	tests := []struct {
		name string
		defs []ParameterDef
		obj  func([]backtest.Trade) float64
		opts Options
	}{
		{name: "no defs", defs: nil, obj: bowl},
		{name: "no objective", defs: gridDefs(), obj: nil},
		{name: "zero step", defs: []ParameterDef{{Name: "a", Start: 1, End: 2}}, obj: bowl},
		{name: "end before start", defs: []ParameterDef{{Name: "a", Start: 3, End: 2, Step: 1}}, obj: bowl},
		{name: "duplicate", defs: []ParameterDef{{Name: "a", Start: 1, End: 2, Step: 1}, {Name: "a", Start: 1, End: 2, Step: 1}}, obj: bowl},
		{name: "unnamed", defs: []ParameterDef{{Start: 1, End: 2, Step: 1}}, obj: bowl},
		{name: "unknown type", defs: gridDefs(), obj: bowl, opts: Options{Type: "annealing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Optimize(ctx, holdStrategy(), tt.defs, tt.obj, bars, tt.opts)
			assert.Error(t, err)
		})
	}

	_, err := Optimize(ctx, nil, gridDefs(), bowl, bars, Options{})
	assert.ErrorIs(t, err, backtest.ErrStrategyRequired)
}

func TestOptimize_BacktestErrorPropagates(t *testing.T) {
	t.Parallel()

	_, err := Optimize(context.Background(), holdStrategy(), gridDefs(), bowl, nil, Options{})
	assert.ErrorIs(t, err, backtest.ErrNoBars)
}

func TestOptimize_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Optimize(ctx, holdStrategy(), gridDefs(), bowl, flatBars(30), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPickStable(t *testing.T) {
	t.Parallel()

	metrics := []float64{100, 0, 0, 0, 0, 0, 50, 52, 50, 10}
	defs := []ParameterDef{{Name: "x", Start: 0, End: 9, Step: 1}}
	all := make([]IterationResult, len(metrics))
	for i, m := range metrics {
		all[i] = IterationResult{Iteration: i, Parameters: backtest.Params{"x": float64(i)}, Metric: m}
	}

	assert.Equal(t, 0, pickBest(all, Max).Iteration)
	assert.Equal(t, 7, pickStable(all, defs, 4, Max).Iteration)
	assert.Equal(t, 3, pickStable(all, defs, 4, Min).Iteration)
}

func TestOptimize_StableWithBuckets(t *testing.T) {
	t.Parallel()

	res, err := Optimize(context.Background(), holdStrategy(), gridDefs(), bowl, flatBars(30), Options{NumBuckets: 3})
	require.NoError(t, err)
	// the centre bucket holds the peak
	assert.Equal(t, backtest.Params{"a": 3, "b": 7}, res.BestParameters)
}

func TestParseParameterDef(t *testing.T) {
	t.Parallel()

	d, err := ParseParameterDef("sma=10:30:5")
	require.NoError(t, err)
	assert.Equal(t, ParameterDef{Name: "sma", Start: 10, End: 30, Step: 5}, d)
	assert.Equal(t, []float64{10, 15, 20, 25, 30}, d.Values())

	for _, bad := range []string{"sma", "sma=1:2", "sma=a:2:1", "sma=1:2:0", "=1:2:1"} {
		_, err := ParseParameterDef(bad)
		assert.Error(t, err, bad)
	}
}

func TestParameterDef_FractionalSteps(t *testing.T) {
	t.Parallel()

	d := ParameterDef{Name: "pct", Start: 0.1, End: 0.3, Step: 0.1}
	vals := d.Values()
	require.Len(t, vals, 3)
	assert.InDelta(t, 0.3, vals[2], 1e-12)
}

func TestParseSearchDirection(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]SearchDirection{"": Max, "max": Max, "Highest": Max, "min": Min, "lowest": Min} {
		got, err := ParseSearchDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSearchDirection("sideways")
	assert.Error(t, err)
	assert.Equal(t, "min", Min.String())
}

func TestWalkForward(t *testing.T) {
	t.Parallel()

	bars := flatBars(30)
	res, err := WalkForward(context.Background(), holdStrategy(), gridDefs(), bowl, bars, 10, 5, Options{})
	require.NoError(t, err)

	require.Len(t, res.Windows, 4)
	require.Len(t, res.Trades, 4)
	for i, w := range res.Windows {
		off := i * 5
		assert.Equal(t, bars[off].Time, w.InSampleStart)
		assert.Equal(t, bars[off+9].Time, w.InSampleEnd)
		assert.Equal(t, bars[off+10].Time, w.OutSampleStart)
		assert.Equal(t, bars[off+14].Time, w.OutSampleEnd)
		assert.Equal(t, backtest.Params{"a": 3, "b": 7}, w.BestParameters)
		assert.Equal(t, 1, w.NumTrades)
	}
	for _, tr := range res.Trades {
		assert.Equal(t, 3, tr.HoldingPeriod)
	}
}

func TestWalkForward_NotEnoughData(t *testing.T) {
	t.Parallel()

	res, err := WalkForward(context.Background(), holdStrategy(), gridDefs(), bowl, flatBars(12), 10, 5, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.Windows)
}

func TestWalkForward_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := WalkForward(ctx, holdStrategy(), gridDefs(), bowl, flatBars(30), 0, 5, Options{})
	assert.Error(t, err)
	_, err = WalkForward(ctx, holdStrategy(), gridDefs(), bowl, flatBars(30), 10, -1, Options{})
	assert.Error(t, err)
	_, err = WalkForward(ctx, holdStrategy(), nil, bowl, flatBars(30), 10, 5, Options{})
	assert.ErrorIs(t, err, ErrNoParameters)
}

// waveBars oscillates around 100 with a 3% intrabar range, enough to reach
// percentage stops.
func waveBars(n int) []market.Bar {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := range bars {
		c := 100 + 10*math.Sin(float64(i)/6)
		bars[i] = market.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c * 1.03, Low: c * 0.97, Close: c}
	}
	return bars
}

func TestOptimize_SweepsOptionalRuleParameters(t *testing.T) {
	t.Parallel()

	bars := waveBars(200)
	defs := []ParameterDef{{Name: "stop-pct", Start: 0, End: 4, Step: 1}}
	obj := analysis.Objective(func(trades []backtest.Trade) float64 {
		return analysis.Analyze(10000, trades).Profit
	})

	// the metric a plain backtest built with stop-pct gives
	direct := func(stopPct float64) float64 {
		trades, err := backtest.Run(strategies.MeanReversion(backtest.Params{"sma": 5, "stop-pct": stopPct}), bars, backtest.Options{})
		require.NoError(t, err)
		return obj(trades)
	}

	for _, built := range []float64{0, 3} {
		res, err := Optimize(context.Background(), strategies.MeanReversion(backtest.Params{"sma": 5, "stop-pct": built}),
			defs, obj, bars, Options{RecordAllResults: true})
		require.NoError(t, err)
		require.Len(t, res.AllResults, 5)

		distinct := map[float64]bool{}
		for _, r := range res.AllResults {
			v := r.Parameters.Get("stop-pct")
			assert.InDelta(t, direct(v), r.Metric, 1e-9, "built with %v, swept %v", built, v)
			distinct[r.Metric] = true
		}
		assert.Greater(t, len(distinct), 1, "stop-pct must change the outcome")
		assert.InDelta(t, direct(res.BestParameters.Get("stop-pct")), res.Best.Metric, 1e-9)
	}
}
