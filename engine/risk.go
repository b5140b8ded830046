package engine

import (
	"github.com/shopspring/decimal"

	"perpsim/internal/id"
)

// marginRatio has no meaningful upper bound once equity goes
// non-positive; the sentinel stands in for "maximal risk".
var maxMarginRatio = decimal.NewFromInt(9999)

// recompute refreshes the derived risk metrics from the ledger, the
// open position and the current mark. Recomputing without new fills
// never touches the ledger or any balance.
func (e *Engine) recompute() {
	e.upnl = e.pos.UnrealizedPnl(e.mark)
	e.maintMargin = e.pos.Notional(e.mark).Mul(e.params.MaintenanceMarginRate)
	e.equity = e.ledger.Balance().Add(e.upnl)

	switch {
	case e.pos.IsFlat():
		e.marginRatio = decimal.Zero
	case e.equity.LessThanOrEqual(decimal.Zero):
		e.marginRatio = maxMarginRatio
	default:
		e.marginRatio = e.maintMargin.Div(e.equity)
	}
}

// forceClose submits an internal reduce-only market order against the
// live book. The loss, if any, lands through the ordinary fill and
// ledger mechanics.
func (e *Engine) forceClose(qty decimal.Decimal, reason string) {
	o := &Order{
		ID:         id.New(),
		Symbol:     e.params.Symbol,
		Type:       Market,
		Side:       e.pos.Side.closeSide(),
		Qty:        qty,
		Status:     StatusNew,
		ReduceOnly: true,
		Created:    e.now,
	}
	e.orders[o.ID] = o
	e.arrival = append(e.arrival, o.ID)

	e.matchAggressor(o)
	e.finalizeReduceOnly(o)
	e.rebuildBook()

	if o.FilledQty.GreaterThan(decimal.Zero) {
		e.events = append(e.events, event{reason: reason, qty: o.FilledQty, price: e.mark})
	}
}

// enforceLiquidation runs the two-stage policy. Stage one deleverages
// in bounded steps of LiqStepFraction of the remaining quantity until
// the ratio drops under LiqTarget or the step cap runs out. Stage two
// force-closes whatever is left if the ratio still sits at or above
// the escalation threshold, or equity is gone, and charges the
// liquidation fee on the closed notional.
func (e *Engine) enforceLiquidation() {
	e.recompute()
	if e.pos.IsFlat() {
		return
	}

	if e.marginRatio.GreaterThanOrEqual(e.params.LiqTrigger) {
		for steps := 0; steps < e.params.LiqStepCap; steps++ {
			if e.pos.IsFlat() || e.marginRatio.LessThan(e.params.LiqTarget) {
				break
			}
			e.forceClose(e.pos.Qty.Mul(e.params.LiqStepFraction), ReasonDeleverage)
			e.recompute()
		}
	}

	if e.pos.IsFlat() {
		return
	}
	escalation := e.params.LiqTrigger.Mul(e.params.LiqEscalation)
	if e.marginRatio.GreaterThanOrEqual(escalation) || e.equity.LessThanOrEqual(decimal.Zero) {
		notional := e.pos.Notional(e.mark)
		e.forceClose(e.pos.Qty, ReasonLiquidation)
		e.ledger.Append(EntryLiquidationFee, notional.Mul(e.params.LiqFeeRate).Neg(), "forced liquidation", e.now)
		e.recompute()
	}
}
