package journal

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/analysis"
	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/pkg/optional"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func sampleTrades() []backtest.Trade {
	return []backtest.Trade{
		{
			Direction:     backtest.Long,
			EntryTime:     day0.AddDate(0, 0, 1),
			EntryPrice:    100,
			ExitTime:      day0.AddDate(0, 0, 4),
			ExitPrice:     110,
			Profit:        10,
			ProfitPct:     10,
			Growth:        1.1,
			RiskPct:       optional.Some(5),
			RMultiple:     optional.Some(2),
			RiskSeries:    []backtest.TimedValue{{Time: day0.AddDate(0, 0, 2), Value: 4.5}},
			HoldingPeriod: 3,
			ExitReason:    backtest.ExitProfitTarget,
			StopPrice:     optional.Some(95),
			ProfitTarget:  optional.Some(110),
		},
		{
			Direction:     backtest.Short,
			EntryTime:     day0.AddDate(0, 0, 6),
			EntryPrice:    110,
			ExitTime:      day0.AddDate(0, 0, 7),
			ExitPrice:     112,
			Profit:        -2,
			ProfitPct:     -2 / 110.0 * 100,
			Growth:        1 - 2/110.0,
			HoldingPeriod: 1,
			ExitReason:    backtest.ExitFinalize,
		},
	}
}

func sampleRun(trades []backtest.Trade) Run {
	return Run{
		Created:    day0.Add(36 * time.Hour),
		Kind:       KindBacktest,
		Strategy:   "mean-reversion",
		Dataset:    "spy.csv",
		Parameters: backtest.Params{"sma": 20, "stop-pct": 5},
		Start:      day0,
		End:        day0.AddDate(0, 0, 7),
		Analysis:   analysis.Analyze(10000, trades),
		Notes:      []string{"first pass"},
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','trades')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())
	assert.True(t, found["runs"])
	assert.True(t, found["trades"])
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	trades := sampleTrades()
	run := sampleRun(trades)

	runID, err := j.RecordRun(ctx, run, trades)
	require.NoError(t, err)
	assert.Len(t, runID, 26)

	got, err := j.GetRun(ctx, runID)
	require.NoError(t, err)
	run.RunID = runID
	assert.Equal(t, run, got)

	gotTrades, err := j.ListTrades(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, trades, gotTrades)
	assert.False(t, gotTrades[1].RMultiple.Valid)
	assert.Nil(t, gotTrades[1].RiskSeries)
}

func TestSQLiteKeepsGivenRunID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	run := sampleRun(nil)
	run.RunID = "fixed"
	runID, err := j.RecordRun(ctx, run, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", runID)

	trades, err := j.ListTrades(ctx, runID)
	require.NoError(t, err)
	assert.Empty(t, trades)

	_, err = j.RecordRun(ctx, run, nil)
	assert.Error(t, err, "duplicate run id")
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run := sampleRun(nil)
		run.Created = day0.Add(time.Duration(i) * time.Hour)
		id, err := j.RecordRun(ctx, run, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[0], runs[2].RunID)

	runs, err = j.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	_, err := j.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = j.ListTrades(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, j.DeleteRun(ctx, "nope"), ErrNotFound)
}

func TestSQLiteDeleteRunCascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, path := newTestSQLite(t)

	trades := sampleTrades()
	runID, err := j.RecordRun(ctx, sampleRun(trades), trades)
	require.NoError(t, err)
	require.NoError(t, j.DeleteRun(ctx, runID))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&n))
	assert.Zero(t, n)
}

func TestSQLiteInMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	trades := sampleTrades()
	runID, err := j.RecordRun(ctx, sampleRun(trades), trades)
	require.NoError(t, err)

	runs, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got, err := j.ListTrades(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, got, len(trades))

	// foreign keys still on
	require.NoError(t, j.DeleteRun(ctx, runID))
	var n int
	require.NoError(t, j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n))
	assert.Zero(t, n)
}

func TestSQLitePathWithQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "q.db")
	j, err := NewSQLite(path + "?_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	trades := sampleTrades()
	runID, err := j.RecordRun(ctx, sampleRun(trades), trades)
	require.NoError(t, err)
	require.NoError(t, j.DeleteRun(ctx, runID))

	var n int
	require.NoError(t, j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n))
	assert.Zero(t, n)
}

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
		memory   bool
	}{
		{"runs.db", "runs.db?_foreign_keys=on", false},
		{"runs.db?_busy_timeout=5000", "runs.db?_busy_timeout=5000&_foreign_keys=on", false},
		{":memory:", ":memory:?_foreign_keys=on", true},
		{"file:x?mode=memory&cache=shared", "file:x?mode=memory&cache=shared&_foreign_keys=on", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dsn(tt.in), tt.in)
		assert.Equal(t, tt.memory, isMemory(tt.in), tt.in)
	}
}

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, sampleTrades()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(tradeHeader, ","), lines[0])
	assert.Equal(t,
		"long,2024-01-03T00:00:00Z,100.000000,2024-01-06T00:00:00Z,110.000000,10.000000,10.000000,1.100000,5.000000,2.000000,3,profit-target,95.000000,110.000000",
		lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",,1,finalize,,"), lines[2])
}

func TestRunWriteOrg(t *testing.T) {
	t.Parallel()

	trades := sampleTrades()
	run := sampleRun(trades)
	run.RunID = "01HRUNTEST"

	var buf bytes.Buffer
	require.NoError(t, run.WriteOrg(&buf, trades))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "* BACKTEST: mean-reversion spy.csv\n"))
	assert.Contains(t, out, ":RUN_ID:      01HRUNTEST")
	assert.Contains(t, out, ":START_DATE:  2024-01-02")
	assert.Contains(t, out, ":TRADES:      2")
	assert.Contains(t, out, "| sma | 20 |")
	assert.Contains(t, out, "| stop-pct | 5 |")
	assert.Contains(t, out, "| 0 | long | 2024-01-03 100.0000 | 2024-01-06 110.0000 | 10.00 | 2.00 | 3 | profit-target |")
	assert.Contains(t, out, "| 1 | short |")
	assert.Contains(t, out, "** Observations\n- first pass")
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	tr := sampleTrades()[1]
	out := FormatTradeOrg("01HRUNTESTLONGID", 1, tr)

	assert.Contains(t, out, "** Trade 1: short (01HRUNTE)")
	assert.Contains(t, out, ":RUN_ID: 01HRUNTESTLONGID")
	assert.Contains(t, out, ":ENTRY_TIME: 2024-01-08T00:00:00Z")
	assert.Contains(t, out, ":PROFIT: -2.00")
	assert.Contains(t, out, ":R_MULTIPLE: -")
	assert.Contains(t, out, ":EXIT_REASON: finalize")
	assert.Contains(t, out, "*** Review")

	assert.Equal(t, "short", shortID("short"))
}
