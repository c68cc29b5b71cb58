package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/montecarlo"
	"github.com/rustyeddy/tradesim/pkg/optional"
)

func TestFixed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2.68", Fixed(2.675, 2))
	assert.Equal(t, "-1.50", Fixed(-1.5, 2))
	assert.Equal(t, "3", Fixed(3.2, 0))
	assert.Equal(t, "-", Opt(optional.Float{}, 2))
	assert.Equal(t, "0.125", Opt(optional.Some(0.125), 3))
}

func TestMoney(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Money(1234567.891), "1,234,567")
}

func TestAnalysis(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Analysis(&buf, analysis.Analysis{StartingCapital: 1000, FinalCapital: 1100, TotalTrades: 3}))
	out := buf.String()
	assert.Contains(t, out, "Trades")
	assert.Contains(t, out, "Profit factor")
	assert.Contains(t, out, "-\n")
}

func TestMonteCarlo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, MonteCarlo(&buf, montecarlo.Report{ProfitPct: montecarlo.Summary{Median: 4.255}}))
	assert.Contains(t, buf.String(), "profit %")
	assert.Contains(t, buf.String(), "4.26")
}

func TestJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
