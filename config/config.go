// Package config loads the run configuration shared by every tradesim
// command.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/optimize"
	"github.com/rustyeddy/tradesim/strategies"
)

// EnvPrefix is prepended to environment overrides, e.g.
// TRADESIM_JOURNAL_PATH.
const EnvPrefix = "TRADESIM"

// Config is the complete run configuration.
type Config struct {
	Data        DataConfig        `json:"data" yaml:"data"`
	Strategy    StrategyConfig    `json:"strategy" yaml:"strategy"`
	Options     OptionsConfig     `json:"options" yaml:"options"`
	Capital     float64           `json:"capital" yaml:"capital"`
	Journal     JournalConfig     `json:"journal" yaml:"journal"`
	Optimize    OptimizeConfig    `json:"optimize" yaml:"optimize"`
	WalkForward WalkForwardConfig `json:"walkforward" yaml:"walkforward"`
	MonteCarlo  MonteCarloConfig  `json:"montecarlo" yaml:"montecarlo"`
	Server      ServerConfig      `json:"server" yaml:"server"`
}

// DataConfig locates the bar file. From and To are optional dates
// (2006-01-02 or RFC3339) limiting bars to [From, To).
type DataConfig struct {
	Bars string `json:"bars" yaml:"bars"`
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to,omitempty" yaml:"to,omitempty"`
}

// Range parses From and To. Unset bounds are zero.
func (d DataConfig) Range() (from, to time.Time, err error) {
	if from, err = parseDate(d.From); err != nil {
		return from, to, fmt.Errorf("data.from: %w", err)
	}
	if to, err = parseDate(d.To); err != nil {
		return from, to, fmt.Errorf("data.to: %w", err)
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type StrategyConfig struct {
	Name       string             `json:"name" yaml:"name"`
	Parameters map[string]float64 `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Lookback   int                `json:"lookback,omitempty" yaml:"lookback,omitempty"`
}

type OptionsConfig struct {
	RecordRisk              bool `json:"record_risk" yaml:"record_risk"`
	RecordStopPrice         bool `json:"record_stop_price" yaml:"record_stop_price"`
	DistinguishTrailingStop bool `json:"distinguish_trailing_stop" yaml:"distinguish_trailing_stop"`
}

type JournalConfig struct {
	Path string `json:"path" yaml:"path"` // sqlite file, empty disables journaling
}

type OptimizeConfig struct {
	Type           string                  `json:"type" yaml:"type"` // grid or hill-climb
	Direction      string                  `json:"direction" yaml:"direction"`
	Objective      string                  `json:"objective" yaml:"objective"`
	Parameters     []optimize.ParameterDef `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Seed           uint64                  `json:"seed" yaml:"seed"`
	StartingPoints int                     `json:"starting_points" yaml:"starting_points"`
	Workers        int                     `json:"workers,omitempty" yaml:"workers,omitempty"`
	Buckets        int                     `json:"buckets,omitempty" yaml:"buckets,omitempty"`
}

type WalkForwardConfig struct {
	InSample  int `json:"in_sample" yaml:"in_sample"`
	OutSample int `json:"out_sample" yaml:"out_sample"`
}

type MonteCarloConfig struct {
	Iterations int    `json:"iterations" yaml:"iterations"`
	Samples    int    `json:"samples" yaml:"samples"`
	Seed       uint64 `json:"seed" yaml:"seed"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns a configuration that runs mean-reversion over
// ./data/bars.csv.
func Default() *Config {
	return &Config{
		Data: DataConfig{Bars: "./data/bars.csv"},
		Strategy: StrategyConfig{Name: "mean-reversion"},
		Options: OptionsConfig{RecordRisk: true, RecordStopPrice: true},
		Capital: 10000,
		Journal: JournalConfig{Path: "./tradesim.db"},
		Optimize: OptimizeConfig{
			Type:           string(optimize.Grid),
			Direction:      "max",
			Objective:      "profit-pct",
			Seed:           1,
			StartingPoints: 4,
		},
		WalkForward: WalkForwardConfig{InSample: 250, OutSample: 50},
		MonteCarlo:  MonteCarloConfig{Iterations: 1000, Samples: 0, Seed: 1},
		Server:      ServerConfig{Addr: ":8080"},
	}
}

// LoadFromFile reads a YAML or JSON file over the defaults, applies
// TRADESIM_* environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v, err := newViper()
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(path)
	v.SetConfigType(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err := v.MergeInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newViper seeds a viper instance with Default so every key is known to
// the environment override.
func newViper() (*viper.Viper, error) {
	def, err := yaml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(def)); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration is runnable.
func (c *Config) Validate() error {
	if c.Data.Bars == "" {
		return fmt.Errorf("data.bars is required")
	}
	from, to, err := c.Data.Range()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return fmt.Errorf("data.from must be before data.to")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if _, err := strategies.ByName(c.Strategy.Name, nil); err != nil {
		return err
	}
	if c.Strategy.Lookback < 0 {
		return fmt.Errorf("strategy.lookback must not be negative")
	}
	if c.Capital <= 0 {
		return fmt.Errorf("capital must be positive")
	}

	switch optimize.Type(c.Optimize.Type) {
	case "", optimize.Grid, optimize.HillClimb:
	default:
		return fmt.Errorf("optimize.type must be 'grid' or 'hill-climb'")
	}
	if _, err := optimize.ParseSearchDirection(c.Optimize.Direction); err != nil {
		return err
	}
	if _, err := analysis.ObjectiveByName(c.Optimize.Objective); err != nil {
		return err
	}
	if c.Optimize.StartingPoints < 0 || c.Optimize.Workers < 0 || c.Optimize.Buckets < 0 {
		return fmt.Errorf("optimize counts must not be negative")
	}
	if c.WalkForward.InSample <= 0 || c.WalkForward.OutSample <= 0 {
		return fmt.Errorf("walkforward.in_sample and out_sample must be positive")
	}
	if c.MonteCarlo.Iterations <= 0 {
		return fmt.Errorf("montecarlo.iterations must be positive")
	}
	if c.MonteCarlo.Samples < 0 {
		return fmt.Errorf("montecarlo.samples must not be negative")
	}
	return nil
}

// BacktestOptions builds engine options from the strategy and options
// sections.
func (c *Config) BacktestOptions() backtest.Options {
	return backtest.Options{
		Parameters:              backtest.Params(c.Strategy.Parameters),
		LookbackPeriod:          c.Strategy.Lookback,
		RecordRisk:              c.Options.RecordRisk,
		RecordStopPrice:         c.Options.RecordStopPrice,
		DistinguishTrailingStop: c.Options.DistinguishTrailingStop,
	}
}

// OptimizeOptions builds search options. Rand and Logger are left to the
// caller.
func (c *Config) OptimizeOptions() (optimize.Options, error) {
	dir, err := optimize.ParseSearchDirection(c.Optimize.Direction)
	if err != nil {
		return optimize.Options{}, err
	}
	return optimize.Options{
		Type:              optimize.Type(c.Optimize.Type),
		SearchDirection:   dir,
		Backtest:          c.BacktestOptions(),
		NumStartingPoints: c.Optimize.StartingPoints,
		Workers:           c.Optimize.Workers,
		NumBuckets:        c.Optimize.Buckets,
		RecordAllResults:  true,
		RecordDuration:    true,
	}, nil
}
