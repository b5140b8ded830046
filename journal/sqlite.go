package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// AppendLedger inserts one ledger record. Re-inserting an id already
// on disk is a no-op, so the caller may sync the full in-memory ledger
// after every command.
func (j *SQLite) AppendLedger(r LedgerRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO ledger (id, type, delta, reference, time)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Type, r.Delta.String(), r.Reference, r.Time,
	)
	return err
}

// SaveState upserts the single account-state row.
func (j *SQLite) SaveState(s StateRecord) error {
	notes, err := json.Marshal(s.Annotations)
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}

	_, err = j.db.Exec(`
		INSERT INTO state
		(id, balance, leverage, margin_mode, pos_side, pos_qty, pos_entry, pos_leverage, take_profit, stop_loss, annotations, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance=excluded.balance,
			leverage=excluded.leverage,
			margin_mode=excluded.margin_mode,
			pos_side=excluded.pos_side,
			pos_qty=excluded.pos_qty,
			pos_entry=excluded.pos_entry,
			pos_leverage=excluded.pos_leverage,
			take_profit=excluded.take_profit,
			stop_loss=excluded.stop_loss,
			annotations=excluded.annotations,
			saved_at=excluded.saved_at`,
		s.Balance.String(), s.Leverage, s.MarginMode,
		s.PosSide, s.PosQty.String(), s.PosEntry.String(), s.PosLeverage,
		s.TakeProfit.String(), s.StopLoss.String(), string(notes), s.SavedAt,
	)
	return err
}

// LoadState reads the account-state row. The second return is false
// when nothing has been saved yet.
func (j *SQLite) LoadState() (StateRecord, bool, error) {
	row := j.db.QueryRow(`
		SELECT balance, leverage, margin_mode, pos_side, pos_qty, pos_entry, pos_leverage, take_profit, stop_loss, annotations, saved_at
		FROM state WHERE id = 1`)

	var s StateRecord
	var balance, qty, entry, tp, sl, notes string
	err := row.Scan(&balance, &s.Leverage, &s.MarginMode,
		&s.PosSide, &qty, &entry, &s.PosLeverage, &tp, &sl, &notes, &s.SavedAt)
	if err == sql.ErrNoRows {
		return StateRecord{}, false, nil
	}
	if err != nil {
		return StateRecord{}, false, err
	}

	if s.Balance, err = decimal.NewFromString(balance); err != nil {
		return StateRecord{}, false, fmt.Errorf("balance: %w", err)
	}
	if s.PosQty, err = decimal.NewFromString(qty); err != nil {
		return StateRecord{}, false, fmt.Errorf("pos_qty: %w", err)
	}
	if s.PosEntry, err = decimal.NewFromString(entry); err != nil {
		return StateRecord{}, false, fmt.Errorf("pos_entry: %w", err)
	}
	if s.TakeProfit, err = decimal.NewFromString(tp); err != nil {
		return StateRecord{}, false, fmt.Errorf("take_profit: %w", err)
	}
	if s.StopLoss, err = decimal.NewFromString(sl); err != nil {
		return StateRecord{}, false, fmt.Errorf("stop_loss: %w", err)
	}
	if err := json.Unmarshal([]byte(notes), &s.Annotations); err != nil {
		return StateRecord{}, false, fmt.Errorf("annotations: %w", err)
	}
	return s, true, nil
}

// ResetState deletes the persisted snapshot and ledger.
func (j *SQLite) ResetState() error {
	if _, err := j.db.Exec(`DELETE FROM state`); err != nil {
		return err
	}
	_, err := j.db.Exec(`DELETE FROM ledger`)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
