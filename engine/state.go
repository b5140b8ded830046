package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// State is what the storage collaborator persists between sessions:
// the wallet balance snapshot, account settings, the open position and
// the user's annotations. Loaded at startup, saved after every
// mutating command.
type State struct {
	WalletBalance decimal.Decimal
	Leverage      int
	MarginMode    MarginMode
	Position      Position
	Annotations   []string
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		WalletBalance: e.ledger.Balance(),
		Leverage:      e.leverage,
		MarginMode:    e.mode,
		Position:      e.pos,
		Annotations:   append([]string(nil), e.annotations...),
	}
}

// Restore replaces account state from a persisted snapshot. The ledger
// restarts with one DEPOSIT entry carrying the restored balance, so
// the wallet stays the literal sum of ledger deltas.
func (e *Engine) Restore(s State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.Leverage < 1 || s.Leverage > e.params.MaxLeverage {
		return fmt.Errorf("%w: %d", ErrInvalidLeverage, s.Leverage)
	}
	if s.MarginMode != Cross && s.MarginMode != Isolated {
		return ErrInvalidMarginMode
	}
	if s.Position.Qty.IsNegative() {
		return ErrInvalidQty
	}
	if (s.Position.Side == Flat) != s.Position.Qty.IsZero() {
		return fmt.Errorf("position side %s inconsistent with qty %s", s.Position.Side, s.Position.Qty)
	}

	e.ledger = NewLedger()
	if s.WalletBalance.GreaterThan(decimal.Zero) {
		e.ledger.Append(EntryDeposit, s.WalletBalance, "restored balance", e.now)
	}
	e.leverage = s.Leverage
	e.mode = s.MarginMode
	e.pos = s.Position
	e.annotations = append([]string(nil), s.Annotations...)
	e.recompute()
	return nil
}
