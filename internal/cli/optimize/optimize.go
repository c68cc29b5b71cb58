// Package optimize holds the "optimize" and "walkforward" commands.
package optimize

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/analysis"
	bt "github.com/rustyeddy/tradesim/backtest"
	appconfig "github.com/rustyeddy/tradesim/config"
	clibacktest "github.com/rustyeddy/tradesim/internal/cli/backtest"
	"github.com/rustyeddy/tradesim/internal/cli/config"
	"github.com/rustyeddy/tradesim/internal/cli/output"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/montecarlo"
	opt "github.com/rustyeddy/tradesim/optimize"
)

// searchFlags override the optimize section.
type searchFlags struct {
	defs      []string
	typ       string
	direction string
	objective string
	seed      uint64
	starts    int
	workers   int
	buckets   int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVar(&f.defs, "param-def", nil, "Search dimension name=start:end:step (repeatable)")
	fs.StringVar(&f.typ, "type", "", "Search type: grid|hill-climb")
	fs.StringVar(&f.direction, "direction", "", "Search direction: max|min")
	fs.StringVar(&f.objective, "objective", "", "Objective to optimize")
	fs.Uint64Var(&f.seed, "seed", 0, "Hill-climb seed")
	fs.IntVar(&f.starts, "starting-points", 0, "Hill-climb starting points")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent backtests (0 = GOMAXPROCS)")
	fs.IntVar(&f.buckets, "buckets", 0, "Pick from the most stable of N buckets per parameter")
}

func (f *searchFlags) apply(cmd *cobra.Command, cfg *appconfig.Config) error {
	fs := cmd.Flags()
	if len(f.defs) > 0 {
		cfg.Optimize.Parameters = nil
		for _, s := range f.defs {
			d, err := opt.ParseParameterDef(s)
			if err != nil {
				return err
			}
			cfg.Optimize.Parameters = append(cfg.Optimize.Parameters, d)
		}
	}
	if fs.Changed("type") {
		cfg.Optimize.Type = f.typ
	}
	if fs.Changed("direction") {
		cfg.Optimize.Direction = f.direction
	}
	if fs.Changed("objective") {
		cfg.Optimize.Objective = f.objective
	}
	if fs.Changed("seed") {
		cfg.Optimize.Seed = f.seed
	}
	if fs.Changed("starting-points") {
		cfg.Optimize.StartingPoints = f.starts
	}
	if fs.Changed("workers") {
		cfg.Optimize.Workers = f.workers
	}
	if fs.Changed("buckets") {
		cfg.Optimize.Buckets = f.buckets
	}
	if len(cfg.Optimize.Parameters) == 0 {
		return fmt.Errorf("no search parameters: set optimize.parameters or pass --param-def")
	}
	return cfg.Validate()
}

// searchOptions resolves the optimize section into options and objective.
func searchOptions(cfg *appconfig.Config, log *zap.Logger) (opt.Options, analysis.Objective, error) {
	o, err := cfg.OptimizeOptions()
	if err != nil {
		return opt.Options{}, nil, err
	}
	o.Logger = log
	o.Rand = montecarlo.NewRand(cfg.Optimize.Seed)
	obj, err := analysis.ObjectiveByName(cfg.Optimize.Objective)
	if err != nil {
		return opt.Options{}, nil, err
	}
	return o, obj, nil
}

func New(rc *config.RootConfig) *cobra.Command {
	var (
		rf     config.RunFlags
		sf     searchFlags
		top    int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search strategy parameters for the best objective value",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := rc.Logger()
			cfg, err := rc.Load()
			if err != nil {
				return err
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

			res, err := opt.Optimize(cmd.Context(), strategy, cfg.Optimize.Parameters, obj, bars, o)
			if err != nil {
				return err
			}
			log.Info("optimize complete",
				zap.String("strategy", cfg.Strategy.Name),
				zap.Int("iterations", len(res.AllResults)),
				zap.Duration("took", res.Duration),
			)

			// rerun the winner so it can be journaled with its trades
			bopts := o.Backtest
			bopts.Parameters = bopts.Parameters.Merge(res.BestParameters)
			bopts.Logger = log
			trades, err := bt.Run(strategy, bars, bopts)
			if err != nil {
				return err
			}
			an := analysis.Analyze(cfg.Capital, trades)

			run := journal.Run{
				Kind:       journal.KindOptimize,
				Strategy:   cfg.Strategy.Name,
				Dataset:    cfg.Data.Bars,
				Parameters: clibacktest.EffectiveParams(strategy, bopts.Parameters),
				Start:      bars[0].Time,
				End:        bars[len(bars)-1].Time,
				Analysis:   an,
				Notes: []string{
					fmt.Sprintf("%s search, %s %s = %g over %d iterations",
						typeName(o.Type), o.SearchDirection, cfg.Optimize.Objective, res.Best.Metric, len(res.AllResults)),
				},
			}
			runID, err := clibacktest.Record(cmd.Context(), log, cfg, run, trades)
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
			fmt.Fprintf(out, "best %s = %g with %v\n\n", cfg.Optimize.Objective, res.Best.Metric, res.BestParameters)
			if err := printTop(out, res.AllResults, cfg.Optimize.Parameters, o.SearchDirection, top); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return output.Analysis(out, an)
		},
	}

	rf.Register(cmd)
	sf.register(cmd)
	cmd.Flags().IntVar(&top, "top", 10, "Show the N best iterations")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the search result as JSON")
	return cmd
}

func typeName(t opt.Type) string {
	if t == "" {
		return string(opt.Grid)
	}
	return string(t)
}

// printTop lists the n best results, earliest first among equals.
func printTop(w io.Writer, all []opt.IterationResult, defs []opt.ParameterDef, dir opt.SearchDirection, n int) error {
	rs := append([]opt.IterationResult(nil), all...)
	sort.SliceStable(rs, func(i, j int) bool {
		if dir == opt.Min {
			return rs[i].Metric < rs[j].Metric
		}
		return rs[i].Metric > rs[j].Metric
	})
	if n > 0 && len(rs) > n {
		rs = rs[:n]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "iter\t")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t", d.Name)
	}
	fmt.Fprint(tw, "metric\ttrades\n")
	for _, r := range rs {
		fmt.Fprintf(tw, "%d\t", r.Iteration)
		for _, d := range defs {
			fmt.Fprintf(tw, "%g\t", r.Parameters[d.Name])
		}
		fmt.Fprintf(tw, "%s\t%d\n", output.Fixed(r.Metric, 4), r.NumTrades)
	}
	return tw.Flush()
}
