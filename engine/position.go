package engine

import "github.com/shopspring/decimal"

type PositionSide int

const (
	Flat PositionSide = iota
	Long
	Short
)

func (s PositionSide) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	}
	return "FLAT"
}

// Position is the single netted position for the symbol.
// Side is Flat exactly when Qty is zero.
type Position struct {
	Side     PositionSide
	Qty      decimal.Decimal
	Entry    decimal.Decimal
	Leverage int

	// Zero disables the trigger.
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

func (p Position) IsFlat() bool { return p.Side == Flat || p.Qty.IsZero() }

func sideForFill(s Side) PositionSide {
	if s == Buy {
		return Long
	}
	return Short
}

// ApplyFill nets a fill into the position and returns the new position
// plus realized PnL. A fill that offsets more than the current quantity
// closes and reopens on the other side in one step, so a single fill
// can flatten and reverse atomically.
func ApplyFill(p Position, side Side, qty, price decimal.Decimal, leverage int) (Position, decimal.Decimal) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return p, decimal.Zero
	}

	fillSide := sideForFill(side)

	// Opening fill.
	if p.IsFlat() {
		return Position{
			Side:     fillSide,
			Qty:      qty,
			Entry:    price,
			Leverage: leverage,
		}, decimal.Zero
	}

	// Same direction: weighted-average entry, no realization.
	if p.Side == fillSide {
		newQty := p.Qty.Add(qty)
		notional := p.Qty.Mul(p.Entry).Add(qty.Mul(price))
		p.Entry = notional.Div(newQty)
		p.Qty = newQty
		return p, decimal.Zero
	}

	// Opposite direction: close up to the current quantity.
	closeQty := decimal.Min(p.Qty, qty)
	var realized decimal.Decimal
	if p.Side == Long {
		realized = closeQty.Mul(price.Sub(p.Entry))
	} else {
		realized = closeQty.Mul(p.Entry.Sub(price))
	}

	leftover := qty.Sub(closeQty)
	remaining := p.Qty.Sub(closeQty)

	switch {
	case remaining.GreaterThan(decimal.Zero):
		p.Qty = remaining
	case leftover.GreaterThan(decimal.Zero):
		// Reversal: the leftover opens the other way at the fill price.
		p = Position{
			Side:     fillSide,
			Qty:      leftover,
			Entry:    price,
			Leverage: leverage,
		}
	default:
		p = Position{}
	}
	return p, realized
}

// UnrealizedPnl marks the position against the given price.
func (p Position) UnrealizedPnl(mark decimal.Decimal) decimal.Decimal {
	switch p.Side {
	case Long:
		return p.Qty.Mul(mark.Sub(p.Entry))
	case Short:
		return p.Qty.Mul(p.Entry.Sub(mark))
	}
	return decimal.Zero
}

// Notional is quantity times mark price.
func (p Position) Notional(mark decimal.Decimal) decimal.Decimal {
	return p.Qty.Mul(mark)
}

// InitialMargin is the margin the position was opened against.
func (p Position) InitialMargin() decimal.Decimal {
	if p.IsFlat() || p.Leverage <= 0 {
		return decimal.Zero
	}
	return p.Qty.Mul(p.Entry).Div(decimal.NewFromInt(int64(p.Leverage)))
}

// ROE is unrealized PnL as a percentage of initial margin.
func (p Position) ROE(mark decimal.Decimal) decimal.Decimal {
	im := p.InitialMargin()
	if im.IsZero() {
		return decimal.Zero
	}
	return p.UnrealizedPnl(mark).Div(im).Mul(decimal.NewFromInt(100))
}

// LiquidationPrice is the display estimate entry*(1 -/+ 0.99/leverage).
// The risk engine itself works from the margin ratio, not this value.
func (p Position) LiquidationPrice() decimal.Decimal {
	if p.IsFlat() || p.Leverage <= 0 {
		return decimal.Zero
	}
	buffer := decimal.NewFromFloat(0.99).Div(decimal.NewFromInt(int64(p.Leverage)))
	if p.Side == Long {
		return p.Entry.Mul(decimal.NewFromInt(1).Sub(buffer))
	}
	return p.Entry.Mul(decimal.NewFromInt(1).Add(buffer))
}
