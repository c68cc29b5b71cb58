// Package montecarlo is the "tradesim montecarlo" command.
package montecarlo

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bt "github.com/rustyeddy/tradesim/backtest"
	clibacktest "github.com/rustyeddy/tradesim/internal/cli/backtest"
	"github.com/rustyeddy/tradesim/internal/cli/config"
	"github.com/rustyeddy/tradesim/internal/cli/output"
	"github.com/rustyeddy/tradesim/montecarlo"
	"github.com/rustyeddy/tradesim/report"
)

func New(rc *config.RootConfig) *cobra.Command {
	var (
		rf         config.RunFlags
		runID      string
		iterations int
		samples    int
		seed       uint64
		reportOut  string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "Resample trades to estimate the spread of outcomes",
		Long: `Resamples the trades of a fresh backtest, or of a journaled run with
--run, with replacement and reports percentiles of return and drawdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := rc.Logger()
			cfg, err := rc.Load()
			if err != nil {
				return err
			}
			if err := rf.Apply(cmd, cfg); err != nil {
				return err
			}
			fs := cmd.Flags()
			if fs.Changed("iterations") {
				cfg.MonteCarlo.Iterations = iterations
			}
			if fs.Changed("samples") {
				cfg.MonteCarlo.Samples = samples
			}
			if fs.Changed("seed") {
				cfg.MonteCarlo.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var (
				trades  []bt.Trade
				capital = cfg.Capital
			)
			if runID != "" {
				j, err := config.OpenJournal(cfg)
				if err != nil {
					return err
				}
				if j == nil {
					return fmt.Errorf("--run needs a journal (set journal.path or --db)")
				}
				defer j.Close()
				run, err := j.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if trades, err = j.ListTrades(cmd.Context(), runID); err != nil {
					return err
				}
				capital = run.Analysis.StartingCapital
			} else {
				// fresh runs are not journaled from here
				cfg.Journal.Path = ""
				res, err := clibacktest.Run(cmd.Context(), log, cfg, nil)
				if err != nil {
					return err
				}
				trades = res.Trades
			}
			if len(trades) == 0 {
				return fmt.Errorf("no trades to resample")
			}

			n := cfg.MonteCarlo.Samples
			if n == 0 {
				n = len(trades)
			}
			sims, err := montecarlo.Simulate(trades, cfg.MonteCarlo.Iterations, n, montecarlo.NewRand(cfg.MonteCarlo.Seed))
			if err != nil {
				return err
			}
			rep := montecarlo.Analyze(capital, sims)
			log.Info("monte carlo complete", zap.Int("iterations", len(sims)), zap.Int("samples", n))

			if reportOut != "" {
				err := clibacktest.WriteFile(reportOut, func(w io.Writer) error {
					return report.Write(w, report.Input{
						Title:           cfg.Strategy.Name + " monte carlo",
						StartingCapital: capital,
						Trades:          trades,
						MonteCarlo:      &rep,
					})
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return output.JSON(out, rep)
			}
			fmt.Fprintf(out, "%d iterations of %d trades\n\n", len(sims), n)
			return output.MonteCarlo(out, rep)
		},
	}

	rf.Register(cmd)
	cmd.Flags().StringVar(&runID, "run", "", "Resample the trades of this journaled run")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Number of resampled sequences")
	cmd.Flags().IntVar(&samples, "samples", 0, "Trades per sequence (0 = as many as the source)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed")
	cmd.Flags().StringVar(&reportOut, "report", "", "Write an HTML distribution report to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print percentiles as JSON")
	return cmd
}
