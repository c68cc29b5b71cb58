// Package analysis summarizes a trade list: capital growth, drawdown,
// expectancy and the R-multiple based quality measures.
package analysis

import (
	"math"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/pkg/optional"
)

// Analysis of a trade sequence compounded from a starting capital.
type Analysis struct {
	StartingCapital float64 `json:"startingCapital"`
	FinalCapital    float64 `json:"finalCapital"`
	Profit          float64 `json:"profit"`
	ProfitPct       float64 `json:"profitPct"`
	Growth          float64 `json:"growth"`
	TotalTrades     int     `json:"totalTrades"`

	// BarCount is the number of bars held across all trades. Bars between
	// trades are not counted.
	BarCount int `json:"barCount"`

	// MaxDrawdown is the cash lost from peak to lowest trough (<= 0).
	MaxDrawdown    float64 `json:"maxDrawdown"`
	MaxDrawdownPct float64 `json:"maxDrawdownPct"`

	MaxRiskPct optional.Float `json:"maxRiskPct"`

	// Expectency is the mean R-multiple over trades that have one.
	Expectency      optional.Float `json:"expectency"`
	RMultipleStdDev optional.Float `json:"rmultipleStdDev"`
	SystemQuality   optional.Float `json:"systemQuality"`

	// ProfitFactor is unset when there are no losses.
	ProfitFactor         optional.Float `json:"profitFactor"`
	ProportionProfitable float64        `json:"proportionProfitable"`
	PercentProfitable    float64        `json:"percentProfitable"`
	ReturnOnAccount      optional.Float `json:"returnOnAccount"`

	AverageProfitPerTrade float64 `json:"averageProfitPerTrade"`
	NumWinningTrades      int     `json:"numWinningTrades"`
	NumLosingTrades       int     `json:"numLosingTrades"`
	AverageWinningTrade   float64 `json:"averageWinningTrade"`
	AverageLosingTrade    float64 `json:"averageLosingTrade"`
	ExpectedValue         float64 `json:"expectedValue"`
}

// Analyze compounds each trade's growth into startingCapital and derives
// the summary statistics. A trade with zero profit counts as a loss.
func Analyze(startingCapital float64, trades []backtest.Trade) Analysis {
	var (
		capital        = startingCapital
		peak           = startingCapital
		drawdown       float64
		maxDrawdown    float64
		maxDrawdownPct float64
		barCount       int
		totalProfits   float64
		totalLosses    float64
		wins, losses   int
		maxRisk        optional.Float
		rmultiples     []float64
	)

	for _, t := range trades {
		if r, ok := t.RiskPct.Get(); ok {
			if !maxRisk.Valid || r > maxRisk.Float64 {
				maxRisk = optional.Some(r)
			}
		}
		if r, ok := t.RMultiple.Get(); ok {
			rmultiples = append(rmultiples, r)
		}

		capital *= t.Growth
		barCount += t.HoldingPeriod

		if capital < peak {
			drawdown = capital - peak
		} else {
			peak = capital
			drawdown = 0
		}
		maxDrawdown = math.Min(drawdown, maxDrawdown)
		maxDrawdownPct = math.Min(maxDrawdown/peak*100, maxDrawdownPct)

		if t.Profit > 0 {
			totalProfits += t.Profit
			wins++
		} else {
			totalLosses += t.Profit
			losses++
		}
	}

	n := len(trades)
	profit := capital - startingCapital
	a := Analysis{
		StartingCapital:  startingCapital,
		FinalCapital:     capital,
		Profit:           profit,
		ProfitPct:        profit / startingCapital * 100,
		Growth:           capital / startingCapital,
		TotalTrades:      n,
		BarCount:         barCount,
		MaxDrawdown:      maxDrawdown,
		MaxDrawdownPct:   maxDrawdownPct,
		MaxRiskPct:       maxRisk,
		NumWinningTrades: wins,
		NumLosingTrades:  losses,
	}

	if len(rmultiples) > 0 {
		mean, std := meanStd(rmultiples)
		a.Expectency = optional.Some(mean)
		a.RMultipleStdDev = optional.Some(std)
		if std != 0 {
			a.SystemQuality = optional.Some(mean / std)
		}
	}

	if l := math.Abs(totalLosses); l > 0 {
		a.ProfitFactor = optional.Some(totalProfits / l)
	}
	if maxDrawdownPct != 0 {
		a.ReturnOnAccount = optional.Some(a.ProfitPct / math.Abs(maxDrawdownPct))
	}

	var pWin, pLoss float64
	if n > 0 {
		pWin = float64(wins) / float64(n)
		pLoss = float64(losses) / float64(n)
		a.AverageProfitPerTrade = profit / float64(n)
	}
	if wins > 0 {
		a.AverageWinningTrade = totalProfits / float64(wins)
	}
	if losses > 0 {
		a.AverageLosingTrade = totalLosses / float64(losses)
	}
	a.ProportionProfitable = pWin
	a.PercentProfitable = pWin * 100
	a.ExpectedValue = pWin*a.AverageWinningTrade + pLoss*a.AverageLosingTrade

	return a
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
