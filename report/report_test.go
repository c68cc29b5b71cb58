package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/montecarlo"
)

func sample() ([]market.Bar, []backtest.Trade) {
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, 10)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = market.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	trades := []backtest.Trade{
		{EntryTime: bars[1].Time, EntryPrice: 101, ExitTime: bars[3].Time, ExitPrice: 103, Growth: 103.0 / 101},
		{EntryTime: bars[5].Time, EntryPrice: 105, ExitTime: bars[6].Time, ExitPrice: 104, Growth: 104.0 / 105},
	}
	return bars, trades
}

func TestWrite(t *testing.T) {
	t.Parallel()

	bars, trades := sample()
	mc := montecarlo.Analyze(1000, [][]backtest.Trade{trades, trades[:1], trades[1:]})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Input{
		Title:           "mean-reversion",
		StartingCapital: 1000,
		Trades:          trades,
		Bars:            bars,
		MonteCarlo:      &mc,
	}))

	out := buf.String()
	assert.Contains(t, out, "<title>mean-reversion</title>")
	for _, s := range []string{"Equity", "Drawdown", "Close", "Entry", "Exit", "Samples"} {
		assert.Contains(t, out, `"name":"`+s+`"`, s)
	}
}

func TestWriteWithoutOptionalCharts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Input{Title: "empty", StartingCapital: 1000}))
	out := buf.String()
	assert.Contains(t, out, `"name":"Equity"`)
	assert.NotContains(t, out, `"name":"Close"`)
	assert.NotContains(t, out, `"name":"Samples"`)
}

func TestHistogram(t *testing.T) {
	t.Parallel()

	labels, counts := histogram([]float64{0, 1, 2, 3, 4, 10}, 5)
	assert.Equal(t, []string{"0.00", "2.00", "4.00", "6.00", "8.00"}, labels)
	assert.Equal(t, []int{2, 2, 1, 0, 1}, counts)

	labels, counts = histogram([]float64{3, 3}, 5)
	assert.Equal(t, []string{"3.00"}, labels)
	assert.Equal(t, []int{2}, counts)

	labels, counts = histogram(nil, 5)
	assert.Nil(t, labels)
	assert.Nil(t, counts)
}

func TestRound(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.23, round(1.2345, 2))
}
