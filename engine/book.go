package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Level is one price level of the synthesized book: synthetic
// liquidity plus a FIFO queue of the user's resting order ids.
type Level struct {
	Price     decimal.Decimal
	Synthetic decimal.Decimal
	Queue     []string
}

// Book is rebuilt from the mid price every tick. Asks are sorted
// ascending, bids descending, so index 0 is always the best level.
type Book struct {
	Asks []Level
	Bids []Level

	BestBid decimal.Decimal
	BestAsk decimal.Decimal
}

var bpsDivisor = decimal.NewFromInt(10000)

// deriveQuotes spreads the opaque mid price into bid/ask by half the
// configured spread on each side.
func deriveQuotes(p Params, mid decimal.Decimal) (bid, ask decimal.Decimal) {
	half := p.SpreadBps.Div(bpsDivisor).Div(decimal.NewFromInt(2))
	bid = mid.Mul(decimal.NewFromInt(1).Sub(half))
	ask = mid.Mul(decimal.NewFromInt(1).Add(half))
	return bid, ask
}

// synthesizeBook builds the synthetic levels around bid/ask and merges
// the user's resting limit orders in arrival order. Resting orders
// beyond the synthetic depth get their own level with zero synthetic
// quantity so they stay matchable when the market comes back.
func synthesizeBook(p Params, mid decimal.Decimal, resting []*Order) *Book {
	bid, ask := deriveQuotes(p, mid)
	b := &Book{BestBid: bid, BestAsk: ask}

	for i := 0; i < p.BookDepth; i++ {
		step := p.TickSize.Mul(decimal.NewFromInt(int64(i)))
		qty := p.BaseQty.Mul(decimal.NewFromInt(int64(i + 1)))
		b.Asks = append(b.Asks, Level{Price: ask.Add(step), Synthetic: qty})
		b.Bids = append(b.Bids, Level{Price: bid.Sub(step), Synthetic: qty})
	}

	for _, o := range resting {
		if !o.OnBook {
			continue
		}
		if o.Side == Sell {
			b.Asks = mergeLevel(b.Asks, o, false)
		} else {
			b.Bids = mergeLevel(b.Bids, o, true)
		}
	}
	return b
}

func mergeLevel(levels []Level, o *Order, desc bool) []Level {
	for i := range levels {
		if levels[i].Price.Equal(o.Price) {
			levels[i].Queue = append(levels[i].Queue, o.ID)
			return levels
		}
	}
	levels = append(levels, Level{Price: o.Price, Queue: []string{o.ID}})
	sort.SliceStable(levels, func(i, j int) bool {
		if desc {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})
	return levels
}

// opposing returns the levels an aggressor on the given side consumes:
// BUY walks the asks, SELL walks the bids, best price first.
func (b *Book) opposing(side Side) []Level {
	if side == Buy {
		return b.Asks
	}
	return b.Bids
}

// validLimitPrice requires a positive price on the tick grid. Synthetic
// levels track the spread-shifted quotes and may sit off the grid; a
// resting order whose price matches no level gets its own.
func validLimitPrice(p Params, price decimal.Decimal) bool {
	if price.LessThanOrEqual(decimal.Zero) {
		return false
	}
	return price.Mod(p.TickSize).IsZero()
}
