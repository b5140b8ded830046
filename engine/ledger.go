package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"perpsim/internal/id"
)

type EntryType int

const (
	EntryFee EntryType = iota + 1
	EntryRealizedPnl
	EntryFunding
	EntryLiquidationFee
	EntryDeposit
	EntryWithdraw
)

func (t EntryType) String() string {
	switch t {
	case EntryFee:
		return "FEE"
	case EntryRealizedPnl:
		return "REALIZED_PNL"
	case EntryFunding:
		return "FUNDING"
	case EntryLiquidationFee:
		return "LIQUIDATION_FEE"
	case EntryDeposit:
		return "DEPOSIT"
	case EntryWithdraw:
		return "WITHDRAW"
	}
	return "UNKNOWN"
}

// LedgerEntry is one balance-affecting event. Entries are never
// mutated after being appended.
type LedgerEntry struct {
	ID        string
	Type      EntryType
	Delta     decimal.Decimal
	Reference string
	Time      time.Time
}

// Ledger is the append-only financial record. The wallet balance is
// literally the running sum of all entry deltas.
type Ledger struct {
	entries []LedgerEntry
	sum     decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Append(t EntryType, delta decimal.Decimal, ref string, now time.Time) LedgerEntry {
	e := LedgerEntry{
		ID:        id.New(),
		Type:      t,
		Delta:     delta,
		Reference: ref,
		Time:      now,
	}
	l.entries = append(l.entries, e)
	l.sum = l.sum.Add(delta)
	return e
}

// Balance is the running sum of all deltas.
func (l *Ledger) Balance() decimal.Decimal { return l.sum }

func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the full record.
func (l *Ledger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
