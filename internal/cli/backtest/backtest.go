// Package backtest is the "tradesim backtest" command.
package backtest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/analysis"
	bt "github.com/rustyeddy/tradesim/backtest"
	appconfig "github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/cli/config"
	"github.com/rustyeddy/tradesim/internal/cli/output"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/report"
)

// Result of one configured run.
type Result struct {
	Config     *appconfig.Config
	Parameters bt.Params // strategy defaults with overrides applied
	Bars       []market.Bar
	Trades     []bt.Trade
	Analysis   analysis.Analysis
	RunID      string
}

func New(rc *config.RootConfig) *cobra.Command {
	var (
		rf        config.RunFlags
		asJSON    bool
		tradesOut string
		reportOut string
		orgOut    bool
		notes     []string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the configured strategy over the bar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.Load()
			if err != nil {
				return err
			}
			if err := rf.Apply(cmd, cfg); err != nil {
				return err
			}

			res, err := Run(cmd.Context(), rc.Logger(), cfg, notes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if tradesOut != "" {
				if err := WriteFile(tradesOut, func(w io.Writer) error { return journal.WriteTradesCSV(w, res.Trades) }); err != nil {
					return err
				}
			}
			if reportOut != "" {
				err := WriteFile(reportOut, func(w io.Writer) error {
					return report.Write(w, report.Input{
						Title:           cfg.Strategy.Name,
						StartingCapital: cfg.Capital,
						Trades:          res.Trades,
						Bars:            res.Bars,
					})
				})
				if err != nil {
					return err
				}
			}

			switch {
			case asJSON:
				return output.JSON(out, res.Analysis)
			case orgOut:
				return runRecord(res).WriteOrg(out, res.Trades)
			}
			if res.RunID != "" {
				fmt.Fprintf(out, "run %s\n", res.RunID)
			}
			return output.Analysis(out, res.Analysis)
		},
	}

	rf.Register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	cmd.Flags().BoolVar(&orgOut, "org", false, "Print an Org-mode report")
	cmd.Flags().StringVar(&tradesOut, "trades-out", "", "Write trades to this CSV file")
	cmd.Flags().StringVar(&reportOut, "report", "", "Write an HTML chart report to this file")
	cmd.Flags().StringArrayVar(&notes, "note", nil, "Note stored with the run (repeatable)")
	return cmd
}

// Run loads bars, backtests, analyzes and journals one configuration.
func Run(ctx context.Context, log *zap.Logger, cfg *appconfig.Config, notes []string) (Result, error) {
	bars, err := config.LoadBars(cfg)
	if err != nil {
		return Result{}, err
	}
	strategy, err := config.Strategy(cfg)
	if err != nil {
		return Result{}, err
	}

	opts := cfg.BacktestOptions()
	opts.Logger = log
	trades, err := bt.Run(strategy, bars, opts)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Config:     cfg,
		Parameters: EffectiveParams(strategy, opts.Parameters),
		Bars:       bars,
		Trades:     trades,
		Analysis:   analysis.Analyze(cfg.Capital, trades),
	}
	log.Info("backtest complete",
		zap.String("strategy", cfg.Strategy.Name),
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(trades)),
	)

	run := runRecord(res)
	run.Notes = notes
	res.RunID, err = Record(ctx, log, cfg, run, trades)
	return res, err
}

// Record journals run when a journal is configured and returns its id.
func Record(ctx context.Context, log *zap.Logger, cfg *appconfig.Config, run journal.Run, trades []bt.Trade) (string, error) {
	j, err := config.OpenJournal(cfg)
	if err != nil || j == nil {
		return "", err
	}
	defer j.Close()

	runID, err := j.RecordRun(ctx, run, trades)
	if err != nil {
		return "", err
	}
	log.Info("run recorded", zap.String("run_id", runID), zap.String("journal", cfg.Journal.Path))
	return runID, nil
}

// EffectiveParams is what the engine will hand the strategy's rules.
func EffectiveParams(s bt.Strategy, overrides bt.Params) bt.Params {
	var base bt.Params
	if p, ok := s.(bt.Parameterized); ok {
		base = p.Parameters()
	}
	return base.Merge(overrides)
}

func runRecord(res Result) journal.Run {
	cfg := res.Config
	run := journal.Run{
		RunID:      res.RunID,
		Kind:       journal.KindBacktest,
		Strategy:   cfg.Strategy.Name,
		Dataset:    cfg.Data.Bars,
		Parameters: res.Parameters,
		Analysis:   res.Analysis,
	}
	if len(res.Bars) > 0 {
		run.Start = res.Bars[0].Time
		run.End = res.Bars[len(res.Bars)-1].Time
	}
	return run
}

// WriteFile creates path and fills it with fn.
func WriteFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
