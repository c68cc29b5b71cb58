package optimize

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/analysis"
	clibacktest "github.com/rustyeddy/tradesim/internal/cli/backtest"
	"github.com/rustyeddy/tradesim/internal/cli/config"
	"github.com/rustyeddy/tradesim/internal/cli/output"
	"github.com/rustyeddy/tradesim/journal"
	opt "github.com/rustyeddy/tradesim/optimize"
)

func NewWalkForward(rc *config.RootConfig) *cobra.Command {
	var (
		rf        config.RunFlags
		sf        searchFlags
		inSample  int
		outSample int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "walkforward",
		Short: "Optimize in-sample, trade out-of-sample, and slide forward",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := rc.Logger()
			cfg, err := rc.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("in-sample") {
				cfg.WalkForward.InSample = inSample
			}
			if cmd.Flags().Changed("out-sample") {
				cfg.WalkForward.OutSample = outSample
			}
			if err := rf.Apply(cmd, cfg); err != nil {
				return err
			}
			if err := sf.apply(cmd, cfg); err != nil {
				return err
			}

			bars, err := config.LoadBars(cfg)
			if err != nil {
				return err
			}
			strategy, err := config.Strategy(cfg)
			if err != nil {
				return err
			}
			o, obj, err := searchOptions(cfg, log)
			if err != nil {
				return err
			}
			// per-window result lists are not needed
			o.RecordAllResults = false

			res, err := opt.WalkForward(cmd.Context(), strategy, cfg.Optimize.Parameters, obj, bars,
				cfg.WalkForward.InSample, cfg.WalkForward.OutSample, o)
			if err != nil {
				return err
			}
			if len(res.Windows) == 0 {
				return fmt.Errorf("%d bars is not enough for one %d+%d window", len(bars), cfg.WalkForward.InSample, cfg.WalkForward.OutSample)
			}
			log.Info("walk-forward complete", zap.Int("windows", len(res.Windows)), zap.Int("trades", len(res.Trades)))

			an := analysis.Analyze(cfg.Capital, res.Trades)
			last := res.Windows[len(res.Windows)-1]
			run := journal.Run{
				Kind:       journal.KindWalkForward,
				Strategy:   cfg.Strategy.Name,
				Dataset:    cfg.Data.Bars,
				Parameters: clibacktest.EffectiveParams(strategy, o.Backtest.Parameters.Merge(last.BestParameters)),
				Start:      res.Windows[0].OutSampleStart,
				End:        last.OutSampleEnd,
				Analysis:   an,
				Notes: []string{fmt.Sprintf("%d windows of %d in / %d out, objective %s",
					len(res.Windows), cfg.WalkForward.InSample, cfg.WalkForward.OutSample, cfg.Optimize.Objective)},
			}
			runID, err := clibacktest.Record(cmd.Context(), log, cfg, run, res.Trades)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return output.JSON(out, res)
			}
			if runID != "" {
				fmt.Fprintf(out, "run %s\n", runID)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "out-of-sample\tbest parameters\tin-sample metric\ttrades")
			for _, w := range res.Windows {
				fmt.Fprintf(tw, "%s .. %s\t%v\t%s\t%d\n",
					w.OutSampleStart.Format("2006-01-02"), w.OutSampleEnd.Format("2006-01-02"),
					w.BestParameters, output.Fixed(w.InSampleMetric, 4), w.NumTrades)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return output.Analysis(out, an)
		},
	}

	rf.Register(cmd)
	sf.register(cmd)
	cmd.Flags().IntVar(&inSample, "in-sample", 0, "In-sample window in bars")
	cmd.Flags().IntVar(&outSample, "out-sample", 0, "Out-of-sample window in bars")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print windows and trades as JSON")
	return cmd
}
