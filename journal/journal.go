// Package journal keeps a record of backtest runs and their trades so
// results can be listed, compared and exported after the process exits.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("journal: run not found")

// Kind says what produced a run.
type Kind string

const (
	KindBacktest    Kind = "backtest"
	KindOptimize    Kind = "optimize"
	KindWalkForward Kind = "walkforward"
)

// Run is one recorded backtest: what was run, on what data, and the
// analysis of the trades it produced.
type Run struct {
	RunID      string          `json:"runId"`
	Created    time.Time       `json:"created"`
	Kind       Kind            `json:"kind"`
	Strategy   string          `json:"strategy"`
	Dataset    string          `json:"dataset"`
	Parameters backtest.Params `json:"parameters"`

	// Start and End are the first and last bar times of the data.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Analysis analysis.Analysis `json:"analysis"`
	Notes    []string          `json:"notes,omitempty"`
}

// Journal stores runs.
type Journal interface {
	// RecordRun stores run with its trades and returns the run id,
	// generating one when run.RunID is empty.
	RecordRun(ctx context.Context, run Run, trades []backtest.Trade) (string, error)
	GetRun(ctx context.Context, runID string) (Run, error)
	// ListRuns returns the newest runs first, at most limit (0 = all).
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListTrades(ctx context.Context, runID string) ([]backtest.Trade, error)
	Close() error
}
