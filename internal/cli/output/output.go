// Package output formats results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/montecarlo"
	"github.com/rustyeddy/tradesim/pkg/optional"
)

var printer = message.NewPrinter(language.English)

// Money formats v with two decimals and thousands grouping.
func Money(v float64) string {
	return printer.Sprintf("%.2f", decimal.NewFromFloat(v).Round(2).InexactFloat64())
}

// Fixed rounds half away from zero on the decimal value, so 2.675 prints
// as 2.68 where %.2f gives 2.67.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Opt is Fixed for optional values, "-" when unset.
func Opt(v optional.Float, places int32) string {
	if !v.Valid {
		return "-"
	}
	return Fixed(v.Float64, places)
}

// JSON writes v indented.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Analysis prints the headline numbers as an aligned table.
func Analysis(w io.Writer, a analysis.Analysis) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Starting capital", Money(a.StartingCapital)},
		{"Final capital", Money(a.FinalCapital)},
		{"Profit", Money(a.Profit)},
		{"Profit %", Fixed(a.ProfitPct, 2)},
		{"Trades", fmt.Sprint(a.TotalTrades)},
		{"Winners / losers", fmt.Sprintf("%d / %d", a.NumWinningTrades, a.NumLosingTrades)},
		{"Percent profitable", Fixed(a.PercentProfitable, 2)},
		{"Average win", Money(a.AverageWinningTrade)},
		{"Average loss", Money(a.AverageLosingTrade)},
		{"Max drawdown", Money(a.MaxDrawdown)},
		{"Max drawdown %", Fixed(a.MaxDrawdownPct, 2)},
		{"Max risk %", Opt(a.MaxRiskPct, 2)},
		{"Expectency", Opt(a.Expectency, 3)},
		{"R std dev", Opt(a.RMultipleStdDev, 3)},
		{"System quality", Opt(a.SystemQuality, 3)},
		{"Profit factor", Opt(a.ProfitFactor, 3)},
		{"Return on account", Opt(a.ReturnOnAccount, 3)},
		{"Bars held", fmt.Sprint(a.BarCount)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

// MonteCarlo prints the spread of sampled returns and drawdowns.
func MonteCarlo(w io.Writer, r montecarlo.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "metric\tmin\tp5\tmedian\tp95\tmax\t\n")
	for _, row := range []struct {
		name string
		s    montecarlo.Summary
	}{
		{"profit %", r.ProfitPct},
		{"max drawdown %", r.MaxDrawdownPct},
	} {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", row.name,
			Fixed(row.s.Min, 2), Fixed(row.s.P5, 2), Fixed(row.s.Median, 2), Fixed(row.s.P95, 2), Fixed(row.s.Max, 2))
	}
	return tw.Flush()
}
