// Package engine implements a single-user, single-symbol simulated
// perpetual-futures account: order management, synthetic-book matching,
// funding, and margin/liquidation enforcement, driven one tick at a
// time by an external price source.
//
// All monetary values use shopspring/decimal, never float64.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"perpsim/internal/id"
)

var (
	ErrInvalidQty          = errors.New("quantity must be positive")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrNoMarketPrice       = errors.New("no market price yet")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownOrder        = errors.New("unknown order id")
	ErrNotCancelable       = errors.New("order is not cancelable")
	ErrInvalidLeverage     = errors.New("invalid leverage")
	ErrInvalidMarginMode   = errors.New("invalid margin mode")
	ErrPositionOpen        = errors.New("not allowed with an open position or open orders")
	ErrNoPosition          = errors.New("no open position")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Listener is notified about risk events the display layer surfaces as
// toasts or alerts. Calls happen after the engine lock is released.
type Listener interface {
	OnPositionClosed(reason string, qty, price decimal.Decimal)
	OnFunding(delta decimal.Decimal)
}

// Close reasons passed to Listener.OnPositionClosed.
const (
	ReasonTakeProfit  = "TakeProfit"
	ReasonStopLoss    = "StopLoss"
	ReasonDeleverage  = "PartialLiquidation"
	ReasonLiquidation = "Liquidation"
)

type event struct {
	reason  string
	qty     decimal.Decimal
	price   decimal.Decimal
	funding bool
	delta   decimal.Decimal
}

// Engine owns all mutable trading state. Every command and the tick
// pipeline serialize behind one mutex; snapshots copy, never alias.
type Engine struct {
	mu     sync.Mutex
	params Params

	ledger  *Ledger
	orders  map[string]*Order
	arrival []string

	pos  Position
	book *Book

	mark decimal.Decimal
	now  time.Time

	leverage    int
	mode        MarginMode
	annotations []string

	// Recomputed every tick and after every fill.
	upnl        decimal.Decimal
	maintMargin decimal.Decimal
	equity      decimal.Decimal
	marginRatio decimal.Decimal

	tape       []Trade
	fundingDue time.Time

	listener Listener
	events   []event
}

// New creates an engine with the opening balance entered as the first
// DEPOSIT ledger entry, so the wallet is auditable from entry zero.
func New(p Params, openingBalance decimal.Decimal) *Engine {
	e := &Engine{
		params:   p,
		ledger:   NewLedger(),
		orders:   make(map[string]*Order),
		leverage: 20,
		mode:     Cross,
	}
	if e.leverage > p.MaxLeverage {
		e.leverage = p.MaxLeverage
	}
	if openingBalance.GreaterThan(decimal.Zero) {
		e.ledger.Append(EntryDeposit, openingBalance, "opening balance", time.Time{})
	}
	return e
}

func (e *Engine) SetListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// Tick runs the full pipeline for one externally supplied mid price:
// book resynthesis, funding, TP/SL triggers, pending market matching,
// resting-limit crossing, liquidation, metrics.
func (e *Engine) Tick(mid decimal.Decimal, now time.Time) error {
	if mid.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidPrice
	}

	e.mu.Lock()
	e.mark = mid
	e.now = now
	e.rebuildBook()

	e.settleFunding(now)
	e.checkTriggers()
	e.matchPendingMarkets()
	e.matchRestingCrossings()
	e.enforceLiquidation()
	e.recompute()

	notes := e.drainEvents()
	e.mu.Unlock()

	e.emit(notes)
	return nil
}

// PlaceOrder validates and creates an order. Validation failures
// return an error with no state change. A limit price with no valid
// book level stores and returns the order as REJECTED with a nil
// error; callers must inspect the returned status.
func (e *Engine) PlaceOrder(side Side, typ OrderType, qty, price decimal.Decimal) (Order, error) {
	e.mu.Lock()

	o, err := e.placeLocked(side, typ, qty, price, false)
	if err != nil {
		e.mu.Unlock()
		return Order{}, err
	}
	e.recompute()

	out := *o
	notes := e.drainEvents()
	e.mu.Unlock()

	e.emit(notes)
	return out, nil
}

func (e *Engine) placeLocked(side Side, typ OrderType, qty, price decimal.Decimal, reduceOnly bool) (*Order, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidQty
	}
	switch typ {
	case Limit:
		if price.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidPrice
		}
	case Market:
		if e.mark.LessThanOrEqual(decimal.Zero) {
			return nil, ErrNoMarketPrice
		}
		price = decimal.Zero
	default:
		return nil, fmt.Errorf("unknown order type %d", typ)
	}

	o := &Order{
		ID:      id.New(),
		Symbol:  e.params.Symbol,
		Type:    typ,
		Side:    side,
		Qty:     qty,
		Price:   price,
		Status:  StatusNew,
		Created: e.now,
	}
	o.ReduceOnly = reduceOnly

	if !reduceOnly {
		marginPrice := price
		if typ == Market {
			marginPrice = e.mark
		}
		required := marginPrice.Mul(qty).Div(decimal.NewFromInt(int64(e.leverage)))
		if required.GreaterThan(e.availableLocked()) {
			return nil, fmt.Errorf("%w: need %s, available %s",
				ErrInsufficientBalance, required.StringFixed(0), e.availableLocked().StringFixed(0))
		}
		o.LockedMargin = required
	}

	if typ == Limit && !validLimitPrice(e.params, price) {
		o.Status = StatusRejected
		o.LockedMargin = decimal.Zero
		e.orders[o.ID] = o
		e.arrival = append(e.arrival, o.ID)
		return o, nil
	}

	e.orders[o.ID] = o
	e.arrival = append(e.arrival, o.ID)

	switch typ {
	case Market:
		if e.book != nil {
			e.matchAggressor(o)
		}
		e.finalizeReduceOnly(o)
	case Limit:
		if e.book != nil && e.marketable(o) {
			e.matchAggressor(o)
			e.finalizeReduceOnly(o)
		}
		if !o.Status.Terminal() {
			o.OnBook = true
		}
	}
	e.rebuildBook()
	return o, nil
}

func (e *Engine) marketable(o *Order) bool {
	if o.Type != Limit || e.book == nil {
		return false
	}
	if o.Side == Buy {
		return o.Price.GreaterThanOrEqual(e.book.BestAsk)
	}
	return o.Price.LessThanOrEqual(e.book.BestBid)
}

// CancelOrder is allowed while the order is NEW or PARTIAL. The locked
// margin frees itself through the balance derivation.
func (e *Engine) CancelOrder(orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if o.Status != StatusNew && o.Status != StatusPartial {
		return fmt.Errorf("%w: %s is %s", ErrNotCancelable, orderID, o.Status)
	}
	o.Status = StatusCanceled
	o.OnBook = false
	e.rebuildBook()
	e.recompute()
	return nil
}

// ClosePosition closes the full open position with a reduce-only
// market order at current book prices.
func (e *Engine) ClosePosition() error {
	e.mu.Lock()

	if e.pos.IsFlat() {
		e.mu.Unlock()
		return ErrNoPosition
	}
	if e.book == nil {
		e.mu.Unlock()
		return ErrNoMarketPrice
	}
	if _, err := e.placeLocked(e.pos.Side.closeSide(), Market, e.pos.Qty, decimal.Zero, true); err != nil {
		e.mu.Unlock()
		return err
	}
	e.recompute()

	notes := e.drainEvents()
	e.mu.Unlock()

	e.emit(notes)
	return nil
}

func (s PositionSide) closeSide() Side {
	if s == Long {
		return Sell
	}
	return Buy
}

// SetLeverage applies to subsequently placed orders; an open position
// keeps the leverage it was opened with.
func (e *Engine) SetLeverage(v int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v < 1 || v > e.params.MaxLeverage {
		return fmt.Errorf("%w: %d (range 1-%d)", ErrInvalidLeverage, v, e.params.MaxLeverage)
	}
	e.leverage = v
	return nil
}

// SetMarginMode switches between cross and isolated accounting. The
// switch is rejected while any position or working order exists.
func (e *Engine) SetMarginMode(m MarginMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m != Cross && m != Isolated {
		return ErrInvalidMarginMode
	}
	if !e.pos.IsFlat() || e.hasWorkingOrders() {
		return ErrPositionOpen
	}
	e.mode = m
	return nil
}

// SetTpSl stores take-profit / stop-loss trigger prices on the open
// position. Zero disables a trigger.
func (e *Engine) SetTpSl(takeProfit, stopLoss decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pos.IsFlat() {
		return ErrNoPosition
	}
	if takeProfit.IsNegative() || stopLoss.IsNegative() {
		return ErrInvalidPrice
	}
	e.pos.TakeProfit = takeProfit
	e.pos.StopLoss = stopLoss
	return nil
}

func (e *Engine) Deposit(amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	e.ledger.Append(EntryDeposit, amount, "user deposit", e.now)
	e.recompute()
	return nil
}

func (e *Engine) Withdraw(amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(e.availableLocked()) {
		return fmt.Errorf("%w: available %s", ErrInsufficientBalance, e.availableLocked().StringFixed(0))
	}
	e.ledger.Append(EntryWithdraw, amount.Neg(), "user withdrawal", e.now)
	e.recompute()
	return nil
}

// SetAnnotations replaces the free-form user notes persisted alongside
// the account state.
func (e *Engine) SetAnnotations(notes []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.annotations = append([]string(nil), notes...)
}

func (e *Engine) hasWorkingOrders() bool {
	for _, o := range e.orders {
		if o.Status == StatusNew || o.Status == StatusPartial {
			return true
		}
	}
	return false
}

// availableLocked derives the available balance; it is never stored.
func (e *Engine) availableLocked() decimal.Decimal {
	avail := e.ledger.Balance()
	for _, o := range e.orders {
		if o.Status == StatusNew || o.Status == StatusPartial {
			avail = avail.Sub(o.LockedMargin)
		}
	}
	return avail
}

func (e *Engine) rebuildBook() {
	if e.mark.LessThanOrEqual(decimal.Zero) {
		return
	}
	resting := make([]*Order, 0, len(e.arrival))
	for _, oid := range e.arrival {
		o := e.orders[oid]
		if o != nil && o.OnBook && !o.Status.Terminal() {
			resting = append(resting, o)
		}
	}
	e.book = synthesizeBook(e.params, e.mark, resting)
}

func (e *Engine) drainEvents() []event {
	notes := e.events
	e.events = nil
	return notes
}

func (e *Engine) emit(notes []event) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	if l == nil {
		return
	}
	for _, n := range notes {
		if n.funding {
			l.OnFunding(n.delta)
		} else {
			l.OnPositionClosed(n.reason, n.qty, n.price)
		}
	}
}
