// Package runs holds the "tradesim runs" journal commands.
package runs

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/internal/cli/config"
	"github.com/rustyeddy/tradesim/internal/cli/output"
	"github.com/rustyeddy/tradesim/journal"
)

func New(rc *config.RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, show and export journaled runs",
	}
	cmd.AddCommand(newList(rc), newShow(rc), newExport(rc), newDelete(rc))
	return cmd
}

func openJournal(rc *config.RootConfig) (*journal.SQLite, error) {
	cfg, err := rc.Load()
	if err != nil {
		return nil, err
	}
	j, err := config.OpenJournal(cfg)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("no journal configured (set journal.path or --db)")
	}
	return j, nil
}

func newList(rc *config.RootConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(rc)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tCREATED\tKIND\tSTRATEGY\tTRADES\tPROFIT %\tMAX DD %")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					r.RunID, r.Created.Format("2006-01-02 15:04"), r.Kind, r.Strategy,
					r.Analysis.TotalTrades, output.Fixed(r.Analysis.ProfitPct, 2), output.Fixed(r.Analysis.MaxDrawdownPct, 2))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Show at most N runs (0 = all)")
	return cmd
}

func newShow(rc *config.RootConfig) *cobra.Command {
	var (
		asJSON bool
		org    bool
	)
	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(rc)
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				return output.JSON(out, run)
			case org:
				trades, err := j.ListTrades(cmd.Context(), run.RunID)
				if err != nil {
					return err
				}
				return run.WriteOrg(out, trades)
			}
			fmt.Fprintf(out, "run %s (%s) %s on %s\n", run.RunID, run.Kind, run.Strategy, run.Dataset)
			fmt.Fprintf(out, "parameters %v\n", run.Parameters)
			fmt.Fprintf(out, "%s .. %s\n\n", run.Start.Format("2006-01-02"), run.End.Format("2006-01-02"))
			for _, n := range run.Notes {
				fmt.Fprintf(out, "note: %s\n", n)
			}
			return output.Analysis(out, run.Analysis)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	cmd.Flags().BoolVar(&org, "org", false, "Print an Org-mode report with trades")
	return cmd
}

func newExport(rc *config.RootConfig) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export RUN_ID",
		Short: "Export a run's trades as csv, json or org",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(rc)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := cmd.Context()
			run, err := j.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			trades, err := j.ListTrades(ctx, run.RunID)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "csv":
				return journal.WriteTradesCSV(w, trades)
			case "json":
				return output.JSON(w, trades)
			case "org":
				for i, t := range trades {
					if _, err := fmt.Fprintln(w, journal.FormatTradeOrg(run.RunID, i, t)); err != nil {
						return err
					}
				}
				return nil
			}
			return fmt.Errorf("unknown format %q (supported: csv, json, org)", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv|json|org")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to file instead of stdout")
	return cmd
}

func newDelete(rc *config.RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "delete RUN_ID",
		Short: "Delete a run and its trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(rc)
			if err != nil {
				return err
			}
			defer j.Close()
			if err := j.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
