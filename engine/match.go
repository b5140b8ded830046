package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"perpsim/internal/id"
)

// Trade is one entry of the recent-trades tape.
type Trade struct {
	ID    string
	Time  time.Time
	Side  Side
	Price decimal.Decimal
	Qty   decimal.Decimal
	Maker bool
}

// execute applies one fill to an order, the position and the ledger.
// A resting order pays the maker rate on every fill; an order that
// executes immediately pays the taker rate. Every fill emits one FEE
// entry and, when exposure shrinks or reverses, one REALIZED_PNL
// entry.
func (e *Engine) execute(o *Order, qty, price decimal.Decimal, maker bool) {
	rate := e.params.TakerFeeRate
	if maker {
		rate = e.params.MakerFeeRate
	}
	fee := qty.Mul(price).Mul(rate)

	reduced := !e.pos.IsFlat() && sideForFill(o.Side) != e.pos.Side

	var realized decimal.Decimal
	e.pos, realized = ApplyFill(e.pos, o.Side, qty, price, e.leverage)

	e.ledger.Append(EntryFee, fee.Neg(), "fee order "+o.ID, e.now)
	if reduced {
		e.ledger.Append(EntryRealizedPnl, realized, "realized order "+o.ID, e.now)
	}

	o.applyFill(qty)
}

func (e *Engine) recordTrade(side Side, qty, price decimal.Decimal, maker bool) {
	e.tape = append(e.tape, Trade{
		ID:    id.New(),
		Time:  e.now,
		Side:  side,
		Price: price,
		Qty:   qty,
		Maker: maker,
	})
	if n := len(e.tape) - e.params.TapeSize; n > 0 && e.params.TapeSize > 0 {
		e.tape = e.tape[n:]
	}
}

// reduceAllowance is the most a reduce-only order may still fill: the
// current opposing exposure. The second return is false for orders
// without the reduce-only restriction.
func (e *Engine) reduceAllowance(o *Order) (decimal.Decimal, bool) {
	if !o.ReduceOnly {
		return decimal.Zero, false
	}
	opposes := Long
	if o.Side == Buy {
		opposes = Short
	}
	if e.pos.Side == opposes {
		return e.pos.Qty, true
	}
	return decimal.Zero, true
}

// finalizeReduceOnly drops the unfillable remainder of a reduce-only
// order: reduce-only never opens or reverses, so whatever cannot
// shrink the position is canceled rather than left working.
func (e *Engine) finalizeReduceOnly(o *Order) {
	if !o.ReduceOnly || o.Status.Terminal() {
		return
	}
	o.Status = StatusCanceled
	o.OnBook = false
	o.LockedMargin = decimal.Zero
}

// matchAggressor fills a market or marketable order against the book,
// best price first. At each level the user's resting orders fill
// before the synthetic liquidity.
func (e *Engine) matchAggressor(o *Order) {
	if e.book == nil {
		return
	}
	levels := e.book.opposing(o.Side)

	for i := range levels {
		if o.Remaining().LessThanOrEqual(decimal.Zero) {
			break
		}
		if a, limited := e.reduceAllowance(o); limited && a.LessThanOrEqual(decimal.Zero) {
			break
		}

		lv := &levels[i]
		if o.Type == Limit {
			if o.Side == Buy && lv.Price.GreaterThan(o.Price) {
				break
			}
			if o.Side == Sell && lv.Price.LessThan(o.Price) {
				break
			}
		}

		// Makers first, FIFO arrival order.
		var keep []string
		for _, moID := range lv.Queue {
			mo := e.orders[moID]
			if mo == nil || mo.Status.Terminal() || !mo.OnBook {
				continue
			}
			if o.Remaining().LessThanOrEqual(decimal.Zero) {
				keep = append(keep, moID)
				continue
			}
			q := decimal.Min(o.Remaining(), mo.Remaining())
			if a, limited := e.reduceAllowance(o); limited {
				q = decimal.Min(q, a)
			}
			if a, limited := e.reduceAllowance(mo); limited {
				q = decimal.Min(q, a)
			}
			if q.LessThanOrEqual(decimal.Zero) {
				keep = append(keep, moID)
				continue
			}
			e.execute(mo, q, lv.Price, true)
			e.execute(o, q, lv.Price, false)
			e.recordTrade(o.Side, q, lv.Price, false)
			if !mo.Status.Terminal() {
				keep = append(keep, moID)
			}
		}
		lv.Queue = keep

		// Then the synthetic quantity at the level.
		q := decimal.Min(o.Remaining(), lv.Synthetic)
		if a, limited := e.reduceAllowance(o); limited {
			q = decimal.Min(q, a)
		}
		if q.GreaterThan(decimal.Zero) {
			lv.Synthetic = lv.Synthetic.Sub(q)
			e.execute(o, q, lv.Price, false)
			e.recordTrade(o.Side, q, lv.Price, false)
		}
	}
}

// matchPendingMarkets retries market orders whose remainder could not
// fill on an earlier tick, in arrival order.
func (e *Engine) matchPendingMarkets() {
	for _, oid := range e.arrival {
		o := e.orders[oid]
		if o == nil || o.Type != Market || o.Status.Terminal() {
			continue
		}
		e.matchAggressor(o)
		e.finalizeReduceOnly(o)
	}
	e.rebuildBook()
}

// matchRestingCrossings fills resting limits the market has moved
// through: a BUY when the best ask falls to its price, a SELL when
// the best bid rises to it. The fill happens at the order's own limit
// price, at the maker rate, since the order supplied the resting
// liquidity the market crossed.
func (e *Engine) matchRestingCrossings() {
	for _, oid := range e.arrival {
		o := e.orders[oid]
		if o == nil || o.Type != Limit || o.Status.Terminal() || !o.OnBook {
			continue
		}

		crossed := false
		if o.Side == Buy {
			crossed = e.book.BestAsk.LessThanOrEqual(o.Price)
		} else {
			crossed = e.book.BestBid.GreaterThanOrEqual(o.Price)
		}
		if !crossed {
			continue
		}

		q := o.Remaining()
		if a, limited := e.reduceAllowance(o); limited {
			q = decimal.Min(q, a)
		}
		if q.GreaterThan(decimal.Zero) {
			e.execute(o, q, o.Price, true)
			e.recordTrade(o.Side, q, o.Price, true)
		}
		e.finalizeReduceOnly(o)
	}
	e.rebuildBook()
}
