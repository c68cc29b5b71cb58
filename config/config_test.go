package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/optimize"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "mean-reversion", cfg.Strategy.Name)
	assert.Equal(t, 10000.0, cfg.Capital)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing bars", mutate: func(c *Config) { c.Data.Bars = "" }, errMsg: "data.bars is required"},
		{name: "bad from", mutate: func(c *Config) { c.Data.From = "yesterday" }, errMsg: "data.from"},
		{name: "from after to", mutate: func(c *Config) { c.Data.From, c.Data.To = "2021-01-01", "2020-01-01" }, errMsg: "data.from must be before data.to"},
		{name: "missing strategy", mutate: func(c *Config) { c.Strategy.Name = "" }, errMsg: "strategy.name is required"},
		{name: "unknown strategy", mutate: func(c *Config) { c.Strategy.Name = "coin-flip" }, errMsg: "unknown strategy"},
		{name: "negative lookback", mutate: func(c *Config) { c.Strategy.Lookback = -1 }, errMsg: "strategy.lookback"},
		{name: "zero capital", mutate: func(c *Config) { c.Capital = 0 }, errMsg: "capital must be positive"},
		{name: "bad optimize type", mutate: func(c *Config) { c.Optimize.Type = "genetic" }, errMsg: "optimize.type"},
		{name: "bad direction", mutate: func(c *Config) { c.Optimize.Direction = "up" }, errMsg: "search direction"},
		{name: "bad objective", mutate: func(c *Config) { c.Optimize.Objective = "vibes" }, errMsg: "unknown objective"},
		{name: "walkforward sizes", mutate: func(c *Config) { c.WalkForward.OutSample = 0 }, errMsg: "walkforward"},
		{name: "montecarlo iterations", mutate: func(c *Config) { c.MonteCarlo.Iterations = 0 }, errMsg: "montecarlo.iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.Strategy.Name = "ema-cross"
			cfg.Strategy.Parameters = map[string]float64{"fast": 5, "slow": 20}
			cfg.Optimize.Parameters = []optimize.ParameterDef{{Name: "fast", Start: 2, End: 10, Step: 2}}
			cfg.Data.From = "2020-01-01"
			path := filepath.Join(t.TempDir(), "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  bars: spy.csv
strategy:
  name: buy-and-hold
capital: 2500
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "spy.csv", cfg.Data.Bars)
	assert.Equal(t, "buy-and-hold", cfg.Strategy.Name)
	assert.Equal(t, 2500.0, cfg.Capital)
	assert.Equal(t, Default().Journal, cfg.Journal)
	assert.Equal(t, Default().WalkForward, cfg.WalkForward)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, Default().SaveToFile(path))

	t.Setenv("TRADESIM_JOURNAL_PATH", "/tmp/other.db")
	t.Setenv("TRADESIM_CAPITAL", "500")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Journal.Path)
	assert.Equal(t, 500.0, cfg.Capital)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
	_, err = LoadFromFile("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capital: -1\n"), 0644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestBacktestOptions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Strategy.Parameters = map[string]float64{"sma": 12}
	cfg.Strategy.Lookback = 3
	cfg.Options.DistinguishTrailingStop = true

	opts := cfg.BacktestOptions()
	assert.Equal(t, 12.0, opts.Parameters.Get("sma"))
	assert.Equal(t, 3, opts.LookbackPeriod)
	assert.True(t, opts.RecordRisk)
	assert.True(t, opts.DistinguishTrailingStop)

	oo, err := cfg.OptimizeOptions()
	require.NoError(t, err)
	assert.Equal(t, optimize.Grid, oo.Type)
	assert.Equal(t, optimize.Max, oo.SearchDirection)
	assert.Equal(t, opts, oo.Backtest)
}
