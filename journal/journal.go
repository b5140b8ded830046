// Package journal persists the engine's financial record and account
// state to sqlite, and exports the ledger as CSV.
package journal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"perpsim/engine"
)

// LedgerRecord is one persisted balance-affecting event. Deltas are
// stored as decimal strings so nothing is lost to float conversion.
type LedgerRecord struct {
	ID        string
	Type      string
	Delta     decimal.Decimal
	Reference string
	Time      time.Time
}

// StateRecord is the single-row account snapshot: balance, settings,
// open position and user annotations.
type StateRecord struct {
	Balance     decimal.Decimal
	Leverage    int
	MarginMode  string
	PosSide     string
	PosQty      decimal.Decimal
	PosEntry    decimal.Decimal
	PosLeverage int
	TakeProfit  decimal.Decimal
	StopLoss    decimal.Decimal
	Annotations []string
	SavedAt     time.Time
}

type Journal interface {
	AppendLedger(LedgerRecord) error
	ListLedger(start, end time.Time) ([]LedgerRecord, error)
	SaveState(StateRecord) error
	LoadState() (StateRecord, bool, error)
	Close() error
}

// RecordFromEntry converts an engine ledger entry for persistence.
func RecordFromEntry(e engine.LedgerEntry) LedgerRecord {
	return LedgerRecord{
		ID:        e.ID,
		Type:      e.Type.String(),
		Delta:     e.Delta,
		Reference: e.Reference,
		Time:      e.Time,
	}
}

// StateRecordFrom converts engine state for persistence.
func StateRecordFrom(s engine.State, now time.Time) StateRecord {
	return StateRecord{
		Balance:     s.WalletBalance,
		Leverage:    s.Leverage,
		MarginMode:  s.MarginMode.String(),
		PosSide:     s.Position.Side.String(),
		PosQty:      s.Position.Qty,
		PosEntry:    s.Position.Entry,
		PosLeverage: s.Position.Leverage,
		TakeProfit:  s.Position.TakeProfit,
		StopLoss:    s.Position.StopLoss,
		Annotations: s.Annotations,
		SavedAt:     now,
	}
}

// ToState converts a persisted snapshot back into engine state.
func (r StateRecord) ToState() (engine.State, error) {
	mode, err := parseMarginMode(r.MarginMode)
	if err != nil {
		return engine.State{}, err
	}
	side, err := parsePositionSide(r.PosSide)
	if err != nil {
		return engine.State{}, err
	}
	return engine.State{
		WalletBalance: r.Balance,
		Leverage:      r.Leverage,
		MarginMode:    mode,
		Position: engine.Position{
			Side:       side,
			Qty:        r.PosQty,
			Entry:      r.PosEntry,
			Leverage:   r.PosLeverage,
			TakeProfit: r.TakeProfit,
			StopLoss:   r.StopLoss,
		},
		Annotations: r.Annotations,
	}, nil
}

func parseMarginMode(s string) (engine.MarginMode, error) {
	switch s {
	case "CROSS":
		return engine.Cross, nil
	case "ISOLATED":
		return engine.Isolated, nil
	}
	return 0, fmt.Errorf("unknown margin mode %q", s)
}

func parsePositionSide(s string) (engine.PositionSide, error) {
	switch s {
	case "FLAT":
		return engine.Flat, nil
	case "LONG":
		return engine.Long, nil
	case "SHORT":
		return engine.Short, nil
	}
	return 0, fmt.Errorf("unknown position side %q", s)
}
