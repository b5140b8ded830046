package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func requireEq(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.True(t, want.Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func TestApplyFillOpensLong(t *testing.T) {
	p, realized := ApplyFill(Position{}, Buy, d(1), d(100), 20)

	assert.Equal(t, Long, p.Side)
	requireEq(t, d(1), p.Qty)
	requireEq(t, d(100), p.Entry)
	assert.Equal(t, 20, p.Leverage)
	requireEq(t, decimal.Zero, realized)
}

func TestApplyFillOpensShort(t *testing.T) {
	p, realized := ApplyFill(Position{}, Sell, d(2), d(50), 10)

	assert.Equal(t, Short, p.Side)
	requireEq(t, d(2), p.Qty)
	requireEq(t, d(50), p.Entry)
	requireEq(t, decimal.Zero, realized)
}

func TestApplyFillAveragesSameDirection(t *testing.T) {
	p, _ := ApplyFill(Position{}, Buy, d(1), d(100), 20)
	p, realized := ApplyFill(p, Buy, d(1), d(110), 20)

	assert.Equal(t, Long, p.Side)
	requireEq(t, d(2), p.Qty)
	requireEq(t, d(105), p.Entry)
	requireEq(t, decimal.Zero, realized)
}

func TestApplyFillPartialReduceKeepsEntry(t *testing.T) {
	p, _ := ApplyFill(Position{}, Buy, d(2), d(100), 20)
	p, realized := ApplyFill(p, Sell, d(0.5), d(110), 20)

	assert.Equal(t, Long, p.Side)
	requireEq(t, d(1.5), p.Qty)
	requireEq(t, d(100), p.Entry)
	requireEq(t, d(5), realized) // 0.5 * (110-100)
}

func TestApplyFillFlattens(t *testing.T) {
	p, _ := ApplyFill(Position{}, Sell, d(1), d(100), 20)
	p, realized := ApplyFill(p, Buy, d(1), d(90), 20)

	assert.True(t, p.IsFlat())
	assert.Equal(t, Flat, p.Side)
	requireEq(t, decimal.Zero, p.Qty)
	requireEq(t, d(10), realized) // short: 1 * (100-90)
}

// A single oversized opposite fill closes and reverses atomically.
func TestApplyFillReverses(t *testing.T) {
	p, _ := ApplyFill(Position{}, Buy, d(1), d(100), 20)
	p, realized := ApplyFill(p, Sell, d(1.5), d(110), 20)

	assert.Equal(t, Short, p.Side)
	requireEq(t, d(0.5), p.Qty)
	requireEq(t, d(110), p.Entry)
	requireEq(t, d(10), realized) // 1.0 * (110-100)
}

func TestUnrealizedPnl(t *testing.T) {
	long, _ := ApplyFill(Position{}, Buy, d(2), d(100), 20)
	short, _ := ApplyFill(Position{}, Sell, d(2), d(100), 20)

	requireEq(t, d(20), long.UnrealizedPnl(d(110)))
	requireEq(t, d(-20), long.UnrealizedPnl(d(90)))
	requireEq(t, d(-20), short.UnrealizedPnl(d(110)))
	requireEq(t, d(20), short.UnrealizedPnl(d(90)))
	requireEq(t, decimal.Zero, Position{}.UnrealizedPnl(d(123)))
}

func TestInitialMarginAndROE(t *testing.T) {
	p, _ := ApplyFill(Position{}, Buy, d(1), d(100), 20)

	requireEq(t, d(5), p.InitialMargin()) // 100/20
	requireEq(t, d(100), p.ROE(d(105)))   // +5 pnl on 5 margin
}

func TestLiquidationPriceEstimate(t *testing.T) {
	long, _ := ApplyFill(Position{}, Buy, d(1), d(1000), 20)
	short, _ := ApplyFill(Position{}, Sell, d(1), d(1000), 20)

	requireEq(t, d(950.5), long.LiquidationPrice())   // 1000 * (1 - 0.99/20)
	requireEq(t, d(1049.5), short.LiquidationPrice()) // 1000 * (1 + 0.99/20)
	requireEq(t, decimal.Zero, Position{}.LiquidationPrice())
}

// refTracker is an independent weighted-average-cost accountant used
// to cross-check realized+unrealized PnL over arbitrary sequences.
type refTracker struct {
	signedQty decimal.Decimal // + long / - short
	avgCost   decimal.Decimal
	realized  decimal.Decimal
}

func (r *refTracker) fill(side Side, qty, price decimal.Decimal) {
	delta := qty
	if side == Sell {
		delta = qty.Neg()
	}

	switch {
	case r.signedQty.IsZero() || r.signedQty.Sign() == delta.Sign():
		newQty := r.signedQty.Add(delta)
		cost := r.signedQty.Abs().Mul(r.avgCost).Add(qty.Mul(price))
		r.avgCost = cost.Div(newQty.Abs())
		r.signedQty = newQty
	default:
		closed := decimal.Min(r.signedQty.Abs(), qty)
		dir := decimal.NewFromInt(int64(r.signedQty.Sign()))
		r.realized = r.realized.Add(closed.Mul(price.Sub(r.avgCost)).Mul(dir))
		newQty := r.signedQty.Add(delta)
		if newQty.Sign() != r.signedQty.Sign() {
			r.avgCost = price
		}
		r.signedQty = newQty
		if r.signedQty.IsZero() {
			r.avgCost = decimal.Zero
		}
	}
}

func (r *refTracker) unrealized(mark decimal.Decimal) decimal.Decimal {
	return r.signedQty.Mul(mark.Sub(r.avgCost))
}

func TestPnlMatchesReferenceTracker(t *testing.T) {
	fills := []struct {
		side  Side
		qty   float64
		price float64
	}{
		{Buy, 1, 100}, {Buy, 0.5, 104}, {Sell, 0.8, 110},
		{Sell, 1.2, 95}, {Buy, 0.1, 90}, {Buy, 0.4, 98},
		{Sell, 0.7, 102}, {Buy, 2.5, 101}, {Sell, 2, 99},
	}

	var pos Position
	ref := &refTracker{}
	realizedTotal := decimal.Zero

	for _, f := range fills {
		var realized decimal.Decimal
		pos, realized = ApplyFill(pos, f.side, d(f.qty), d(f.price), 20)
		realizedTotal = realizedTotal.Add(realized)
		ref.fill(f.side, d(f.qty), d(f.price))
	}

	mark := d(103)
	want := ref.realized.Add(ref.unrealized(mark))
	got := realizedTotal.Add(pos.UnrealizedPnl(mark))
	requireEq(t, want, got)
}
