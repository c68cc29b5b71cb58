// Package optimize searches strategy parameters for the best value of an
// objective, by exhaustive grid or by hill-climbing, and validates the
// choice with walk-forward testing.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/market"
)

var (
	ErrNoParameters      = errors.New("optimize: at least one parameter definition is required")
	ErrObjectiveRequired = errors.New("optimize: objective is required")
	ErrRandRequired      = errors.New("optimize: hill-climb needs a rand source")
)

// SearchDirection says whether larger or smaller objective values win.
type SearchDirection int

const (
	Max SearchDirection = iota
	Min
)

func (d SearchDirection) String() string {
	if d == Min {
		return "min"
	}
	return "max"
}

// ParseSearchDirection accepts max/highest or min/lowest.
func ParseSearchDirection(s string) (SearchDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max", "highest":
		return Max, nil
	case "min", "lowest":
		return Min, nil
	}
	return Max, fmt.Errorf("optimize: unknown search direction %q", s)
}

// better reports whether a beats b. Ties do not.
func (d SearchDirection) better(a, b float64) bool {
	if d == Min {
		return a < b
	}
	return a > b
}

// Type selects the search algorithm.
type Type string

const (
	Grid      Type = "grid"
	HillClimb Type = "hill-climb"
)

// Options controls a search.
type Options struct {
	Type            Type
	SearchDirection SearchDirection

	// Backtest is the base for every run; the candidate parameters are
	// merged over Backtest.Parameters.
	Backtest backtest.Options

	// NumStartingPoints is the number of random starts for hill-climb.
	NumStartingPoints int

	// Rand picks hill-climb starting points.
	Rand *rand.Rand

	// Workers bounds concurrent backtests. Defaults to GOMAXPROCS.
	Workers int

	RecordAllResults bool
	RecordDuration   bool

	// NumBuckets > 0 picks the best result from the most stable region of
	// the search space instead of the single best run.
	NumBuckets int

	Logger *zap.Logger
}

// IterationResult is one evaluated parameter set.
type IterationResult struct {
	Iteration  int             `json:"iteration"`
	Parameters backtest.Params `json:"parameters"`
	Metric     float64         `json:"metric"`
	NumTrades  int             `json:"numTrades"`
}

// Result of a search.
type Result struct {
	Best           IterationResult   `json:"best"`
	BestParameters backtest.Params   `json:"bestParameters"`
	AllResults     []IterationResult `json:"allResults,omitempty"`
	Duration       time.Duration     `json:"duration,omitempty"`
}

const defaultStartingPoints = 4

// Optimize searches defs for the parameters that give the best objective
// over bars. Results are deterministic for a given Options.Rand seed
// regardless of Workers.
func Optimize(ctx context.Context, strategy backtest.Strategy, defs []ParameterDef, objective analysis.Objective, bars []market.Bar, opts Options) (Result, error) {
	if strategy == nil {
		return Result{}, backtest.ErrStrategyRequired
	}
	if objective == nil {
		return Result{}, ErrObjectiveRequired
	}
	if err := validateDefs(defs); err != nil {
		return Result{}, err
	}

	start := time.Now()
	ev := newEvaluator(strategy, defs, objective, bars, opts)

	var err error
	switch opts.Type {
	case "", Grid:
		_, err = ev.evalBatch(ctx, gridPoints(defs))
	case HillClimb:
		err = hillClimb(ctx, ev, opts)
	default:
		err = fmt.Errorf("optimize: unknown type %q", opts.Type)
	}
	if err != nil {
		return Result{}, err
	}

	all := ev.results()
	var best IterationResult
	if opts.NumBuckets > 0 {
		best = pickStable(all, defs, opts.NumBuckets, opts.SearchDirection)
	} else {
		best = pickBest(all, opts.SearchDirection)
	}

	res := Result{Best: best, BestParameters: best.Parameters}
	if opts.RecordAllResults {
		res.AllResults = all
	}
	if opts.RecordDuration {
		res.Duration = time.Since(start)
	}
	ev.log.Debug("optimize done",
		zap.String("type", string(opts.Type)),
		zap.Int("iterations", len(all)),
		zap.Float64("best", best.Metric),
	)
	return res, nil
}

func hillClimb(ctx context.Context, ev *evaluator, opts Options) error {
	if opts.Rand == nil {
		return ErrRandRequired
	}
	n := opts.NumStartingPoints
	if n <= 0 {
		n = defaultStartingPoints
	}

	// draw every start up front so the sequence does not depend on
	// how the climbs go
	starts := make([]point, n)
	for i := range starts {
		p := make(point, len(ev.defs))
		for dim, d := range ev.defs {
			p[dim] = opts.Rand.IntN(d.count())
		}
		starts[i] = p
	}

	for _, cur := range starts {
		res, err := ev.evalBatch(ctx, []point{cur})
		if err != nil {
			return err
		}
		curMetric := res[0].Metric

		for {
			next := neighbors(cur, ev.defs)
			if len(next) == 0 {
				break
			}
			res, err := ev.evalBatch(ctx, next)
			if err != nil {
				return err
			}
			bestIdx := -1
			bestMetric := curMetric
			for i, r := range res {
				if opts.SearchDirection.better(r.Metric, bestMetric) {
					bestIdx, bestMetric = i, r.Metric
				}
			}
			if bestIdx < 0 {
				break
			}
			cur, curMetric = next[bestIdx], bestMetric
		}
	}
	return nil
}

func pickBest(all []IterationResult, dir SearchDirection) IterationResult {
	best := all[0]
	for _, r := range all[1:] {
		if dir.better(r.Metric, best.Metric) {
			best = r
		}
	}
	return best
}

// evaluator runs and caches backtests per grid point. Iteration numbers
// are handed out in request order before any run starts.
type evaluator struct {
	strategy  backtest.Strategy
	defs      []ParameterDef
	objective analysis.Objective
	bars      []market.Bar
	opts      Options
	workers   int
	log       *zap.Logger

	mu    sync.Mutex
	cache map[string]IterationResult
	order []string
}

func newEvaluator(s backtest.Strategy, defs []ParameterDef, obj analysis.Objective, bars []market.Bar, opts Options) *evaluator {
	w := opts.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &evaluator{
		strategy:  s,
		defs:      defs,
		objective: obj,
		bars:      bars,
		opts:      opts,
		workers:   w,
		log:       log,
		cache:     make(map[string]IterationResult),
	}
}

// evalBatch returns results for pts in the same order, running only the
// points not seen before.
func (ev *evaluator) evalBatch(ctx context.Context, pts []point) ([]IterationResult, error) {
	type job struct {
		key  string
		iter int
		pt   point
	}

	var jobs []job
	ev.mu.Lock()
	queued := make(map[string]bool)
	for _, p := range pts {
		k := p.key()
		if _, ok := ev.cache[k]; ok || queued[k] {
			continue
		}
		queued[k] = true
		jobs = append(jobs, job{key: k, iter: len(ev.order) + len(jobs), pt: p})
	}
	ev.mu.Unlock()

	done := make([]IterationResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ev.workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := ev.run(j.pt)
			if err != nil {
				return err
			}
			r.Iteration = j.iter
			done[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	for i, j := range jobs {
		ev.cache[j.key] = done[i]
		ev.order = append(ev.order, j.key)
	}
	out := make([]IterationResult, len(pts))
	for i, p := range pts {
		out[i] = ev.cache[p.key()]
	}
	return out, nil
}

func (ev *evaluator) run(p point) (IterationResult, error) {
	params := p.params(ev.defs)
	opts := ev.opts.Backtest
	opts.Parameters = opts.Parameters.Merge(params)

	trades, err := backtest.Run(ev.strategy, ev.bars, opts)
	if err != nil {
		return IterationResult{}, err
	}
	return IterationResult{
		Parameters: params,
		Metric:     ev.objective(trades),
		NumTrades:  len(trades),
	}, nil
}

// results returns every evaluated point in iteration order.
func (ev *evaluator) results() []IterationResult {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	out := make([]IterationResult, len(ev.order))
	for i, k := range ev.order {
		out[i] = ev.cache[k]
	}
	return out
}
