package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side int

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return "UNKNOWN"
}

// Opposite returns the other side of the market.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type OrderType int

const (
	Market OrderType = iota + 1
	Limit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	}
	return "UNKNOWN"
}

type OrderStatus int

const (
	StatusNew OrderStatus = iota + 1
	StatusPartial
	StatusFilled
	StatusCanceled
	StatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusPartial:
		return "PARTIAL"
	case StatusFilled:
		return "FILLED"
	case StatusCanceled:
		return "CANCELED"
	case StatusRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

// Terminal reports whether the status ends the order lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

// Order is a single user order. Price is zero for market orders.
// LockedMargin shrinks proportionally as the order fills and stops
// counting toward the available-balance derivation once the order
// reaches a terminal status.
type Order struct {
	ID           string
	Symbol       string
	Type         OrderType
	Side         Side
	Qty          decimal.Decimal
	Price        decimal.Decimal
	FilledQty    decimal.Decimal
	Status       OrderStatus
	ReduceOnly   bool
	LockedMargin decimal.Decimal
	OnBook       bool
	Created      time.Time
}

// Remaining is the unfilled quantity.
func (o *Order) Remaining() decimal.Decimal {
	return o.Qty.Sub(o.FilledQty)
}

// applyFill records qty executed against the order and scales the
// locked margin down with the remaining quantity.
func (o *Order) applyFill(qty decimal.Decimal) {
	before := o.Remaining()
	o.FilledQty = o.FilledQty.Add(qty)
	after := o.Remaining()

	if after.IsZero() || before.IsZero() {
		o.LockedMargin = decimal.Zero
	} else {
		o.LockedMargin = o.LockedMargin.Mul(after).Div(before)
	}

	if after.IsZero() {
		o.Status = StatusFilled
		o.OnBook = false
	} else {
		o.Status = StatusPartial
	}
}
