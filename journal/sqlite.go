package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/pkg/id"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the journal database at path. path
// may be a go-sqlite3 DSN with its own query, or ":memory:".
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	if isMemory(path) {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

func isMemory(path string) bool {
	return strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")
}

func (j *SQLite) RecordRun(ctx context.Context, run Run, trades []backtest.Trade) (string, error) {
	if run.Created.IsZero() {
		run.Created = time.Now().UTC()
	}
	if run.RunID == "" {
		run.RunID = id.NewAt(run.Created)
	}

	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return "", err
	}
	an, err := json.Marshal(run.Analysis)
	if err != nil {
		return "", err
	}
	notes, err := json.Marshal(run.Notes)
	if err != nil {
		return "", err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, kind, strategy, dataset, parameters, start_time, end_time,
		 starting_capital, final_capital, total_trades, profit_pct, max_drawdown_pct, analysis, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Created.UTC(), string(run.Kind), run.Strategy, run.Dataset, string(params),
		run.Start.UTC(), run.End.UTC(),
		run.Analysis.StartingCapital, run.Analysis.FinalCapital, run.Analysis.TotalTrades,
		run.Analysis.ProfitPct, run.Analysis.MaxDrawdownPct, string(an), string(notes),
	)
	if err != nil {
		return "", fmt.Errorf("journal: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
		(run_id, seq, direction, entry_time, entry_price, exit_time, exit_price, profit, profit_pct,
		 growth, risk_pct, r_multiple, holding_period, exit_reason, stop_price, profit_target,
		 risk_series, stop_price_series)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, t := range trades {
		rs, err := seriesJSON(t.RiskSeries)
		if err != nil {
			return "", err
		}
		ss, err := seriesJSON(t.StopPriceSeries)
		if err != nil {
			return "", err
		}
		_, err = stmt.ExecContext(ctx,
			run.RunID, i, t.Direction.String(), t.EntryTime.UTC(), t.EntryPrice, t.ExitTime.UTC(), t.ExitPrice,
			t.Profit, t.ProfitPct, t.Growth, t.RiskPct, t.RMultiple, t.HoldingPeriod, string(t.ExitReason),
			t.StopPrice, t.ProfitTarget, rs, ss,
		)
		if err != nil {
			return "", fmt.Errorf("journal: insert trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.RunID, nil
}

const runColumns = `run_id, created, kind, strategy, dataset, parameters, start_time, end_time, analysis, notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r                     Run
		kind, params, an, nts string
	)
	if err := s.Scan(&r.RunID, &r.Created, &kind, &r.Strategy, &r.Dataset, &params, &r.Start, &r.End, &an, &nts); err != nil {
		return Run{}, err
	}
	r.Kind = Kind(kind)
	r.Created, r.Start, r.End = r.Created.UTC(), r.Start.UTC(), r.End.UTC()
	if err := json.Unmarshal([]byte(params), &r.Parameters); err != nil {
		return Run{}, fmt.Errorf("journal: run %s parameters: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(an), &r.Analysis); err != nil {
		return Run{}, fmt.Errorf("journal: run %s analysis: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(nts), &r.Notes); err != nil {
		return Run{}, fmt.Errorf("journal: run %s notes: %w", r.RunID, err)
	}
	return r, nil
}

func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %q", ErrNotFound, runID)
	}
	return r, err
}

func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]backtest.Trade, error) {
	if _, err := j.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT direction, entry_time, entry_price, exit_time, exit_price, profit, profit_pct, growth,
		       risk_pct, r_multiple, holding_period, exit_reason, stop_price, profit_target,
		       risk_series, stop_price_series
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []backtest.Trade{}
	for rows.Next() {
		var (
			t        backtest.Trade
			dir, why string
			rs, ss   sql.NullString
		)
		if err := rows.Scan(
			&dir, &t.EntryTime, &t.EntryPrice, &t.ExitTime, &t.ExitPrice, &t.Profit, &t.ProfitPct, &t.Growth,
			&t.RiskPct, &t.RMultiple, &t.HoldingPeriod, &why, &t.StopPrice, &t.ProfitTarget, &rs, &ss,
		); err != nil {
			return nil, err
		}
		if t.Direction, err = backtest.ParseDirection(dir); err != nil {
			return nil, err
		}
		t.ExitReason = backtest.ExitReason(why)
		t.EntryTime, t.ExitTime = t.EntryTime.UTC(), t.ExitTime.UTC()
		if t.RiskSeries, err = parseSeries(rs); err != nil {
			return nil, err
		}
		if t.StopPriceSeries, err = parseSeries(ss); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its trades.
func (j *SQLite) DeleteRun(ctx context.Context, runID string) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, runID)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func seriesJSON(s []backtest.TimedValue) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func parseSeries(s sql.NullString) ([]backtest.TimedValue, error) {
	if !s.Valid {
		return nil, nil
	}
	var out []backtest.TimedValue
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, fmt.Errorf("journal: series: %w", err)
	}
	return out, nil
}
