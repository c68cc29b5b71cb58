// Package montecarlo resamples a trade list with replacement to estimate
// the spread of outcomes a strategy could have produced.
package montecarlo

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
)

// ErrRandRequired is returned when no generator is supplied.
var ErrRandRequired = errors.New("montecarlo: rand source is required")

// NewRand returns a generator seeded with seed. The same seed always
// produces the same samples.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Simulate draws iterations samples of numSamples trades each, picking
// trades uniformly with replacement. No trades in means no samples out.
func Simulate(trades []backtest.Trade, iterations, numSamples int, rng *rand.Rand) ([][]backtest.Trade, error) {
	if iterations < 0 || numSamples < 0 {
		return nil, fmt.Errorf("montecarlo: iterations and samples must be >= 0, got %d and %d", iterations, numSamples)
	}
	if len(trades) == 0 {
		return nil, nil
	}
	if rng == nil {
		return nil, ErrRandRequired
	}

	out := make([][]backtest.Trade, iterations)
	for i := range out {
		sample := make([]backtest.Trade, numSamples)
		for j := range sample {
			sample[j] = trades[rng.IntN(len(trades))]
		}
		out[i] = sample
	}
	return out, nil
}

// Summary describes the distribution of one metric across samples.
type Summary struct {
	Min    float64 `json:"min"`
	P5     float64 `json:"p5"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// Report holds per-sample analyses and the spread of the headline metrics.
type Report struct {
	Samples        []analysis.Analysis `json:"-"`
	ProfitPct      Summary             `json:"profitPct"`
	MaxDrawdownPct Summary             `json:"maxDrawdownPct"`
}

// Analyze runs analysis.Analyze over every sample.
func Analyze(startingCapital float64, samples [][]backtest.Trade) Report {
	r := Report{Samples: make([]analysis.Analysis, len(samples))}
	profit := make([]float64, len(samples))
	dd := make([]float64, len(samples))
	for i, s := range samples {
		a := analysis.Analyze(startingCapital, s)
		r.Samples[i] = a
		profit[i] = a.ProfitPct
		dd[i] = a.MaxDrawdownPct
	}
	r.ProfitPct = summarize(profit)
	r.MaxDrawdownPct = summarize(dd)
	return r
}

func summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	return Summary{
		Min:    s[0],
		P5:     percentile(s, 5),
		Median: percentile(s, 50),
		P95:    percentile(s, 95),
		Max:    s[len(s)-1],
	}
}

// percentile uses nearest rank on sorted input.
func percentile(sorted []float64, p float64) float64 {
	idx := int(p / 100 * float64(len(sorted)-1))
	return sorted[idx]
}
