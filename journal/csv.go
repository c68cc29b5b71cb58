package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/pkg/optional"
)

var tradeHeader = []string{
	"direction", "entry_time", "entry_price", "exit_time", "exit_price",
	"profit", "profit_pct", "growth", "risk_pct", "r_multiple",
	"holding_period", "exit_reason", "stop_price", "profit_target",
}

// WriteTradesCSV writes one row per trade. Unset optional values are
// written as empty cells.
func WriteTradesCSV(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := cw.Write([]string{
			t.Direction.String(),
			t.EntryTime.UTC().Format(time.RFC3339),
			f(t.EntryPrice),
			t.ExitTime.UTC().Format(time.RFC3339),
			f(t.ExitPrice),
			f(t.Profit),
			f(t.ProfitPct),
			f(t.Growth),
			opt(t.RiskPct),
			opt(t.RMultiple),
			strconv.Itoa(t.HoldingPeriod),
			string(t.ExitReason),
			opt(t.StopPrice),
			opt(t.ProfitTarget),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func opt(x optional.Float) string {
	if !x.Valid {
		return ""
	}
	return f(x.Float64)
}
