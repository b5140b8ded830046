package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSummary is the per-tick account projection for the display
// layer. All fields are copies of derived values.
type AccountSummary struct {
	WalletBalance     decimal.Decimal
	AvailableBalance  decimal.Decimal
	Equity            decimal.Decimal
	UnrealizedPnl     decimal.Decimal
	MaintenanceMargin decimal.Decimal
	MarginRatio       decimal.Decimal
	Leverage          int
	MarginMode        MarginMode
}

// PositionView is the open position annotated with live PnL metrics.
type PositionView struct {
	Side              PositionSide
	Qty               decimal.Decimal
	Entry             decimal.Decimal
	Mark              decimal.Decimal
	Leverage          int
	Notional          decimal.Decimal
	UnrealizedPnl     decimal.Decimal
	ROE               decimal.Decimal
	InitialMargin     decimal.Decimal
	MaintenanceMargin decimal.Decimal
	LiquidationPrice  decimal.Decimal
	TakeProfit        decimal.Decimal
	StopLoss          decimal.Decimal
}

// LevelView distinguishes synthetic depth from the user's own resting
// quantity at a price level.
type LevelView struct {
	Price        decimal.Decimal
	SyntheticQty decimal.Decimal
	OwnQty       decimal.Decimal
}

// Snapshot is the read-only projection recomputed for the display
// collaborator. Everything is copied; nothing aliases engine state.
type Snapshot struct {
	Time   time.Time
	Symbol string
	Mark   decimal.Decimal
	Bid    decimal.Decimal
	Ask    decimal.Decimal

	Account  AccountSummary
	Position *PositionView
	Orders   []Order
	Asks     []LevelView
	Bids     []LevelView
	Tape     []Trade
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Time:   e.now,
		Symbol: e.params.Symbol,
		Mark:   e.mark,
		Account: AccountSummary{
			WalletBalance:     e.ledger.Balance(),
			AvailableBalance:  e.availableLocked(),
			Equity:            e.equity,
			UnrealizedPnl:     e.upnl,
			MaintenanceMargin: e.maintMargin,
			MarginRatio:       e.marginRatio,
			Leverage:          e.leverage,
			MarginMode:        e.mode,
		},
	}

	if e.book != nil {
		s.Bid = e.book.BestBid
		s.Ask = e.book.BestAsk
		s.Asks = e.levelViews(e.book.Asks)
		s.Bids = e.levelViews(e.book.Bids)
	}

	if !e.pos.IsFlat() {
		s.Position = &PositionView{
			Side:              e.pos.Side,
			Qty:               e.pos.Qty,
			Entry:             e.pos.Entry,
			Mark:              e.mark,
			Leverage:          e.pos.Leverage,
			Notional:          e.pos.Notional(e.mark),
			UnrealizedPnl:     e.pos.UnrealizedPnl(e.mark),
			ROE:               e.pos.ROE(e.mark),
			InitialMargin:     e.pos.InitialMargin(),
			MaintenanceMargin: e.maintMargin,
			LiquidationPrice:  e.pos.LiquidationPrice(),
			TakeProfit:        e.pos.TakeProfit,
			StopLoss:          e.pos.StopLoss,
		}
	}

	for _, oid := range e.arrival {
		o := e.orders[oid]
		if o != nil && (o.Status == StatusNew || o.Status == StatusPartial) {
			s.Orders = append(s.Orders, *o)
		}
	}

	s.Tape = append(s.Tape, e.tape...)
	return s
}

func (e *Engine) levelViews(levels []Level) []LevelView {
	out := make([]LevelView, 0, len(levels))
	for _, lv := range levels {
		own := decimal.Zero
		for _, oid := range lv.Queue {
			if o := e.orders[oid]; o != nil && !o.Status.Terminal() {
				own = own.Add(o.Remaining())
			}
		}
		out = append(out, LevelView{Price: lv.Price, SyntheticQty: lv.Synthetic, OwnQty: own})
	}
	return out
}

// Order returns a copy of one order by id for post-submission status
// inspection.
func (e *Engine) Order(orderID string) (Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// LedgerEntries returns a copy of the full financial record.
func (e *Engine) LedgerEntries() []LedgerEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Entries()
}
