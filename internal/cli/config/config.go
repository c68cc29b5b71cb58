// Package config holds the state shared by every subcommand: global flags,
// the loaded run configuration and the helpers that turn it into bars, a
// strategy and a journal.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/backtest"
	appconfig "github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/logger"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/strategies"
)

// RootConfig is filled from the persistent flags.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
	LogFormat  string

	Log *zap.Logger
}

// Setup builds the logger. It runs before every subcommand.
func (rc *RootConfig) Setup() error {
	log, err := logger.New(rc.LogLevel, rc.LogFormat)
	if err != nil {
		return err
	}
	rc.Log = log
	return nil
}

// Logger never returns nil.
func (rc *RootConfig) Logger() *zap.Logger {
	if rc.Log == nil {
		return zap.NewNop()
	}
	return rc.Log
}

// Load returns the file configuration, or the defaults when no --config
// was given, with --db applied on top.
func (rc *RootConfig) Load() (*appconfig.Config, error) {
	var (
		cfg *appconfig.Config
		err error
	)
	if rc.ConfigPath != "" {
		if cfg, err = appconfig.LoadFromFile(rc.ConfigPath); err != nil {
			return nil, err
		}
	} else {
		cfg = appconfig.Default()
	}
	if rc.DBPath != "" {
		cfg.Journal.Path = rc.DBPath
	}
	return cfg, nil
}

// OpenJournal opens the configured journal. It returns nil, nil when
// journaling is off.
func OpenJournal(cfg *appconfig.Config) (*journal.SQLite, error) {
	if cfg.Journal.Path == "" {
		return nil, nil
	}
	return journal.NewSQLite(cfg.Journal.Path)
}

// LoadBars reads the configured bar file and range.
func LoadBars(cfg *appconfig.Config) ([]market.Bar, error) {
	from, to, err := cfg.Data.Range()
	if err != nil {
		return nil, err
	}
	return market.LoadCSV(cfg.Data.Bars, from, to)
}

// Strategy builds the configured strategy.
func Strategy(cfg *appconfig.Config) (backtest.Strategy, error) {
	return strategies.ByName(cfg.Strategy.Name, cfg.Strategy.Parameters)
}

// RunFlags are the data and strategy overrides every run command takes.
type RunFlags struct {
	Strategy string
	Bars     string
	From     string
	To       string
	Capital  float64
	Params   []string
	Lookback int
}

func (f *RunFlags) Register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.Strategy, "strategy", "", "Strategy name (see 'tradesim strategies')")
	fs.StringVar(&f.Bars, "bars", "", "Bar CSV file")
	fs.StringVar(&f.From, "from", "", "First bar date, inclusive (2006-01-02 or RFC3339)")
	fs.StringVar(&f.To, "to", "", "Last bar date, exclusive")
	fs.Float64Var(&f.Capital, "capital", 0, "Starting capital")
	fs.StringArrayVar(&f.Params, "param", nil, "Strategy parameter name=value (repeatable)")
	fs.IntVar(&f.Lookback, "lookback", 0, "Lookback period override")
}

// Apply copies flags the user actually set into cfg and revalidates.
func (f *RunFlags) Apply(cmd *cobra.Command, cfg *appconfig.Config) error {
	fs := cmd.Flags()
	if fs.Changed("strategy") {
		cfg.Strategy.Name = f.Strategy
	}
	if fs.Changed("bars") {
		cfg.Data.Bars = f.Bars
	}
	if fs.Changed("from") {
		cfg.Data.From = f.From
	}
	if fs.Changed("to") {
		cfg.Data.To = f.To
	}
	if fs.Changed("capital") {
		cfg.Capital = f.Capital
	}
	if fs.Changed("lookback") {
		cfg.Strategy.Lookback = f.Lookback
	}
	if len(f.Params) > 0 {
		params, err := ParseParams(f.Params)
		if err != nil {
			return err
		}
		if cfg.Strategy.Parameters == nil {
			cfg.Strategy.Parameters = map[string]float64{}
		}
		for k, v := range params {
			cfg.Strategy.Parameters[k] = v
		}
	}
	return cfg.Validate()
}

// ParseParams parses name=value pairs.
func ParseParams(pairs []string) (backtest.Params, error) {
	out := make(backtest.Params, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("bad --param %q: want name=value", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("bad --param %q: %w", p, err)
		}
		out[name] = v
	}
	return out, nil
}
