package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/internal/cli/backtest"
	"github.com/rustyeddy/tradesim/internal/cli/config"
	"github.com/rustyeddy/tradesim/internal/cli/configcmd"
	"github.com/rustyeddy/tradesim/internal/cli/montecarlo"
	"github.com/rustyeddy/tradesim/internal/cli/optimize"
	"github.com/rustyeddy/tradesim/internal/cli/runs"
	"github.com/rustyeddy/tradesim/internal/cli/serve"
	"github.com/rustyeddy/tradesim/strategies"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

func NewRootCmd() *cobra.Command {
	rc := &config.RootConfig{}

	cmd := &cobra.Command{
		Use:           "tradesim",
		Short:         "tradesim: rule-based strategy backtesting, optimization and journaling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "", "SQLite journal database (overrides journal.path)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "console", "Log format: console|json")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.Setup()
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = rc.Logger().Sync()
	}

	cmd.AddCommand(
		backtest.New(rc),
		optimize.New(rc),
		optimize.NewWalkForward(rc),
		montecarlo.New(rc),
		runs.New(rc),
		configcmd.New(rc),
		serve.New(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "strategies",
		Short: "List built-in strategies and their default parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range strategies.Names() {
				s, err := strategies.ByName(name, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %v\n", name, backtest.EffectiveParams(s, nil))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tradesim %s\n", Version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
