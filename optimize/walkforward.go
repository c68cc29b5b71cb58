package optimize

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/market"
)

// WalkForwardWindow records one in-sample/out-of-sample step.
type WalkForwardWindow struct {
	InSampleStart  time.Time       `json:"inSampleStart"`
	InSampleEnd    time.Time       `json:"inSampleEnd"`
	OutSampleStart time.Time       `json:"outSampleStart"`
	OutSampleEnd   time.Time       `json:"outSampleEnd"`
	BestParameters backtest.Params `json:"bestParameters"`
	InSampleMetric float64         `json:"inSampleMetric"`
	NumTrades      int             `json:"numTrades"`
}

// WalkForwardResult holds the concatenated out-of-sample trades.
type WalkForwardResult struct {
	Trades  []backtest.Trade    `json:"trades"`
	Windows []WalkForwardWindow `json:"windows"`
}

// WalkForward optimizes over inSample bars, trades the winner over the
// next outSample bars, then slides both windows forward by outSample. It
// stops once a full out-of-sample window no longer fits.
func WalkForward(ctx context.Context, strategy backtest.Strategy, defs []ParameterDef, objective analysis.Objective, bars []market.Bar, inSample, outSample int, opts Options) (WalkForwardResult, error) {
	if inSample <= 0 || outSample <= 0 {
		return WalkForwardResult{}, fmt.Errorf("optimize: in-sample and out-of-sample sizes must be positive, got %d and %d", inSample, outSample)
	}
	if strategy == nil {
		return WalkForwardResult{}, backtest.ErrStrategyRequired
	}
	if objective == nil {
		return WalkForwardResult{}, ErrObjectiveRequired
	}
	if err := validateDefs(defs); err != nil {
		return WalkForwardResult{}, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var res WalkForwardResult
	for offset := 0; offset+inSample+outSample <= len(bars); offset += outSample {
		if err := ctx.Err(); err != nil {
			return WalkForwardResult{}, err
		}

		in := bars[offset : offset+inSample]
		out := bars[offset+inSample : offset+inSample+outSample]

		opt, err := Optimize(ctx, strategy, defs, objective, in, opts)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("optimize: window at bar %d: %w", offset, err)
		}

		bt := opts.Backtest
		bt.Parameters = bt.Parameters.Merge(opt.BestParameters)
		trades, err := backtest.Run(strategy, out, bt)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("optimize: window at bar %d: %w", offset, err)
		}

		res.Trades = append(res.Trades, trades...)
		res.Windows = append(res.Windows, WalkForwardWindow{
			InSampleStart:  in[0].Time,
			InSampleEnd:    in[len(in)-1].Time,
			OutSampleStart: out[0].Time,
			OutSampleEnd:   out[len(out)-1].Time,
			BestParameters: opt.BestParameters,
			InSampleMetric: opt.Best.Metric,
			NumTrades:      len(trades),
		})
		log.Debug("walk-forward window",
			zap.Int("offset", offset),
			zap.Any("params", opt.BestParameters),
			zap.Int("trades", len(trades)),
		)
	}
	return res, nil
}
