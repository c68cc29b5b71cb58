// Package report renders backtest results as a standalone HTML page of
// echarts charts.
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/montecarlo"
)

const (
	colorEquity   = "#3b82f6"
	colorDrawdown = "#f87171"
	colorPrice    = "#9ca3af"
	colorEntry    = "#34d399"
	colorExit     = "#fbbf24"

	chartWidth  = "1200px"
	chartHeight = "420px"

	histogramBins = 20
)

// Input is everything a report can show. Bars and MonteCarlo are optional.
type Input struct {
	Title           string
	StartingCapital float64
	Trades          []backtest.Trade
	Bars            []market.Bar
	MonteCarlo      *montecarlo.Report
}

// Write renders the page to w.
func Write(w io.Writer, in Input) error {
	page := components.NewPage()
	page.PageTitle = in.Title
	page.SetLayout(components.PageFlexLayout)

	page.AddCharts(
		Equity(in.Title, in.StartingCapital, in.Trades),
		Drawdown(in.StartingCapital, in.Trades),
	)
	if len(in.Bars) > 0 {
		page.AddCharts(Price(in.Bars, in.Trades))
	}
	if in.MonteCarlo != nil && len(in.MonteCarlo.Samples) > 0 {
		page.AddCharts(Distribution(*in.MonteCarlo))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	return nil
}

func initOpts() charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight})
}

func tradeAxis(n int) []string {
	x := make([]string, n)
	for i := range x {
		x[i] = fmt.Sprint(i)
	}
	return x
}

func lineData(vals []float64) []opts.LineData {
	out := make([]opts.LineData, len(vals))
	for i, v := range vals {
		out[i] = opts.LineData{Value: round(v, 2)}
	}
	return out
}

// Equity charts capital after each trade.
func Equity(title string, capital float64, trades []backtest.Trade) *charts.Line {
	eq := analysis.EquityCurve(capital, trades)

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "equity by trade"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(tradeAxis(len(eq))).
		AddSeries("Equity", lineData(eq), charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}))
	return line
}

// Drawdown charts the distance below the running equity peak.
func Drawdown(capital float64, trades []backtest.Trade) *charts.Line {
	dd := analysis.Drawdown(capital, trades)

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Subtitle: "drawdown by trade"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(tradeAxis(len(dd))).
		AddSeries("Drawdown", lineData(dd),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorDrawdown}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: colorDrawdown, Opacity: opts.Float(0.3)}),
		)
	return line
}

// Price charts the close with entry and exit points marked.
func Price(bars []market.Bar, trades []backtest.Trade) *charts.Line {
	x := make([]string, len(bars))
	closes := make([]float64, len(bars))
	at := make(map[int64]int, len(bars))
	for i, b := range bars {
		x[i] = b.Time.Format("2006-01-02 15:04")
		closes[i] = b.Close
		at[b.Time.UnixNano()] = i
	}

	entries := make([]opts.LineData, len(bars))
	exits := make([]opts.LineData, len(bars))
	for i := range bars {
		entries[i] = opts.LineData{Value: nil}
		exits[i] = opts.LineData{Value: nil}
	}
	for _, t := range trades {
		if i, ok := at[t.EntryTime.UnixNano()]; ok {
			entries[i] = opts.LineData{Value: t.EntryPrice}
		}
		if i, ok := at[t.ExitTime.UnixNano()]; ok {
			exits[i] = opts.LineData{Value: t.ExitPrice}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Subtitle: "price and trades"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries("Close", lineData(closes),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorPrice}),
		).
		AddSeries("Entry", entries,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "triangle", SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorEntry}),
		).
		AddSeries("Exit", exits,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "diamond", SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorExit}),
		)
	return line
}

// Distribution is a histogram of Monte Carlo sample returns.
func Distribution(r montecarlo.Report) *charts.Bar {
	vals := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		vals[i] = s.ProfitPct
	}
	labels, counts := histogram(vals, histogramBins)

	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		data[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{
			Subtitle: fmt.Sprintf("monte carlo profit %%: p5 %.2f median %.2f p95 %.2f",
				r.ProfitPct.P5, r.ProfitPct.Median, r.ProfitPct.P95),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("Samples", data)
	return bar
}

// histogram splits vals into n equal-width bins labelled by lower edge.
func histogram(vals []float64, n int) ([]string, []int) {
	if len(vals) == 0 {
		return nil, nil
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return []string{fmt.Sprintf("%.2f", lo)}, []int{len(vals)}
	}

	width := (hi - lo) / float64(n)
	counts := make([]int, n)
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		counts[i]++
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.2f", lo+float64(i)*width)
	}
	return labels, counts
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
