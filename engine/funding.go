package engine

import "time"

// settleFunding posts one FUNDING entry per due interval against the
// open exposure. Longs pay positive rates, shorts receive them; a
// negative rate flips the direction.
func (e *Engine) settleFunding(now time.Time) {
	if e.fundingDue.IsZero() {
		e.fundingDue = now.Add(e.params.FundingInterval)
		return
	}
	if now.Before(e.fundingDue) {
		return
	}

	if !e.pos.IsFlat() {
		amount := e.pos.Notional(e.mark).Mul(e.params.FundingRate)
		delta := amount
		if e.pos.Side == Long {
			delta = amount.Neg()
		}
		e.ledger.Append(EntryFunding, delta, "funding "+e.params.Symbol, now)
		e.events = append(e.events, event{funding: true, delta: delta})
	}

	e.fundingDue = e.fundingDue.Add(e.params.FundingInterval)
	if !e.fundingDue.After(now) {
		e.fundingDue = now.Add(e.params.FundingInterval)
	}
}
