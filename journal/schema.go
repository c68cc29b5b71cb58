package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	kind TEXT NOT NULL,
	strategy TEXT NOT NULL,
	dataset TEXT NOT NULL,
	parameters TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	starting_capital REAL NOT NULL,
	final_capital REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	profit_pct REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	analysis TEXT NOT NULL,
	notes TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	direction TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	entry_price REAL NOT NULL,
	exit_time DATETIME NOT NULL,
	exit_price REAL NOT NULL,
	profit REAL NOT NULL,
	profit_pct REAL NOT NULL,
	growth REAL NOT NULL,
	risk_pct REAL,
	r_multiple REAL,
	holding_period INTEGER NOT NULL,
	exit_reason TEXT NOT NULL,
	stop_price REAL,
	profit_target REAL,
	risk_series TEXT,
	stop_price_series TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`
