package engine

// checkTriggers closes the position with a reduce-only market order
// when the mark crosses its take-profit or stop-loss price.
func (e *Engine) checkTriggers() {
	if e.pos.IsFlat() {
		return
	}

	switch {
	case e.hitTakeProfit():
		e.forceClose(e.pos.Qty, ReasonTakeProfit)
	case e.hitStopLoss():
		e.forceClose(e.pos.Qty, ReasonStopLoss)
	}
}

func (e *Engine) hitTakeProfit() bool {
	tp := e.pos.TakeProfit
	if tp.IsZero() {
		return false
	}
	if e.pos.Side == Long {
		return e.mark.GreaterThanOrEqual(tp)
	}
	return e.mark.LessThanOrEqual(tp)
}

func (e *Engine) hitStopLoss() bool {
	sl := e.pos.StopLoss
	if sl.IsZero() {
		return false
	}
	if e.pos.Side == Long {
		return e.mark.LessThanOrEqual(sl)
	}
	return e.mark.GreaterThanOrEqual(sl)
}
