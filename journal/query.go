package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GetEntry returns a single ledger record by id.
func (j *SQLite) GetEntry(entryID string) (LedgerRecord, error) {
	row := j.db.QueryRow(`
		SELECT id, type, delta, reference, time
		FROM ledger
		WHERE id = ?`, entryID)

	rec, err := scanLedger(row)
	if err == sql.ErrNoRows {
		return LedgerRecord{}, fmt.Errorf("ledger entry %q not found", entryID)
	}
	return rec, err
}

// ListLedger returns ledger records with time within [start, end),
// oldest first. Zero bounds mean unbounded.
func (j *SQLite) ListLedger(start, end time.Time) ([]LedgerRecord, error) {
	if end.IsZero() {
		// Timestamps compare as text in sqlite, so the open bound must
		// keep a four digit year.
		end = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rows, err := j.db.Query(`
		SELECT id, type, delta, reference, time
		FROM ledger
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerRecord
	for rows.Next() {
		rec, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Balance sums all persisted deltas; it must agree with the engine's
// wallet balance whenever the ledger is fully synced.
func (j *SQLite) Balance() (decimal.Decimal, error) {
	rows, err := j.db.Query(`SELECT delta FROM ledger`)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(d)
	}
	return sum, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (LedgerRecord, error) {
	var rec LedgerRecord
	var delta string
	if err := row.Scan(&rec.ID, &rec.Type, &delta, &rec.Reference, &rec.Time); err != nil {
		return LedgerRecord{}, err
	}
	d, err := decimal.NewFromString(delta)
	if err != nil {
		return LedgerRecord{}, fmt.Errorf("delta: %w", err)
	}
	rec.Delta = d
	return rec, nil
}
