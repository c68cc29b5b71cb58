package journal

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/pkg/optional"
)

var orgFuncs = template.FuncMap{
	"opt":  optStr,
	"date": func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			t = time.Now()
		}
		return t.Format("2006-01-02 Mon 15:04")
	},
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(runOrgTemplate))

// WriteOrg renders the run as an Org-mode block with a trade table.
func (r Run) WriteOrg(w io.Writer, trades []backtest.Trade) error {
	return orgTemplate.Execute(w, struct {
		Run
		Trades []backtest.Trade
	}{r, trades})
}

const runOrgTemplate = `* BACKTEST: {{.Strategy}} {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:KIND:        {{.Kind}}
:STRATEGY:    {{.Strategy}}
:DATASET:     {{.Dataset}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:START_CAP:   {{printf "%.2f" .Analysis.StartingCapital}}
:FINAL_CAP:   {{printf "%.2f" .Analysis.FinalCapital}}
:PROFIT_PCT:  {{printf "%.2f" .Analysis.ProfitPct}}
:MAX_DD_PCT:  {{printf "%.2f" .Analysis.MaxDrawdownPct}}
:TRADES:      {{.Analysis.TotalTrades}}
:CREATED:     [{{stamp .Created}}]
:END:

** Parameters
| Parameter | Value |
|-----------+-------|
{{- range $k := .Parameters.Names}}
| {{$k}} | {{index $.Parameters $k}} |
{{- end}}

** Performance Summary
- Profit:            *{{printf "%.2f" .Analysis.Profit}}*
- Return:            *{{printf "%.2f" .Analysis.ProfitPct}}%*
- Max Drawdown:      *{{printf "%.2f" .Analysis.MaxDrawdownPct}}%*
- Percent Profitable: *{{printf "%.2f" .Analysis.PercentProfitable}}%*
- Profit Factor:     *{{opt .Analysis.ProfitFactor}}*
- Expectency:        *{{opt .Analysis.Expectency}}*
- System Quality:    *{{opt .Analysis.SystemQuality}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Analysis.NumWinningTrades}} |
| Losses  | {{.Analysis.NumLosingTrades}} |
| Total   | {{.Analysis.TotalTrades}} |
{{- if .Trades}}

** Trades
| # | Dir | Entry | Exit | Profit % | R | Bars | Reason |
|---+-----+-------+------+----------+---+------+--------|
{{- range $i, $t := .Trades}}
| {{$i}} | {{$t.Direction}} | {{date $t.EntryTime}} {{printf "%.4f" $t.EntryPrice}} | {{date $t.ExitTime}} {{printf "%.4f" $t.ExitPrice}} | {{printf "%.2f" $t.ProfitPct}} | {{opt $t.RMultiple}} | {{$t.HoldingPeriod}} | {{$t.ExitReason}} |
{{- end}}
{{- end}}
{{- if .Notes}}

** Observations
{{- range .Notes}}
- {{.}}
{{- end}}
{{- end}}
`

// FormatTradeOrg renders one trade as an Org heading with its facts in a
// PROPERTIES drawer and empty review sections.
func FormatTradeOrg(runID string, seq int, t backtest.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade %d: %s (%s)\n", seq, t.Direction, shortID(runID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":RUN_ID: %s\n", runID)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", t.Direction)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.5f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.5f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":ENTRY_TIME: %s\n", t.EntryTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":EXIT_TIME: %s\n", t.ExitTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":PROFIT: %.2f\n", t.Profit)
	fmt.Fprintf(&b, ":R_MULTIPLE: %s\n", optStr(t.RMultiple))
	fmt.Fprintf(&b, ":EXIT_REASON: %s\n", t.ExitReason)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

func optStr(x optional.Float) string {
	if !x.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", x.Float64)
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
