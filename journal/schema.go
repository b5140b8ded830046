package journal

const Schema = `
CREATE TABLE IF NOT EXISTS ledger (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	delta TEXT NOT NULL,
	reference TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_time ON ledger(time);
CREATE INDEX IF NOT EXISTS idx_ledger_type ON ledger(type);

CREATE TABLE IF NOT EXISTS state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	balance TEXT NOT NULL,
	leverage INTEGER NOT NULL,
	margin_mode TEXT NOT NULL,
	pos_side TEXT NOT NULL,
	pos_qty TEXT NOT NULL,
	pos_entry TEXT NOT NULL,
	pos_leverage INTEGER NOT NULL,
	take_profit TEXT NOT NULL,
	stop_loss TEXT NOT NULL,
	annotations TEXT NOT NULL,
	saved_at DATETIME NOT NULL
);
`
