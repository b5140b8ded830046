package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveQuotes(t *testing.T) {
	p := testParams()
	p.SpreadBps = decimal.NewFromInt(2)

	bid, ask := deriveQuotes(p, d(100_000))
	requireEq(t, d(99_990), bid)
	requireEq(t, d(100_010), ask)

	p.SpreadBps = decimal.Zero
	bid, ask = deriveQuotes(p, d(100_000))
	requireEq(t, bid, ask)
}

func TestSynthesizeBookLevels(t *testing.T) {
	p := testParams()
	b := synthesizeBook(p, d(100_000), nil)

	require.Len(t, b.Asks, 5)
	require.Len(t, b.Bids, 5)

	for i := 0; i < 5; i++ {
		requireEq(t, d(float64(100_000+i*1000)), b.Asks[i].Price)
		requireEq(t, d(float64(100_000-i*1000)), b.Bids[i].Price)
		// Quantity ramps with distance from the touch.
		requireEq(t, d(float64(i+1)), b.Asks[i].Synthetic)
		requireEq(t, d(float64(i+1)), b.Bids[i].Synthetic)
	}
}

func TestSynthesizeBookMergesRestingOrders(t *testing.T) {
	p := testParams()
	onLevel := &Order{ID: "a", Side: Sell, Price: d(101_000), Qty: d(1), Status: StatusNew, OnBook: true}
	offDepth := &Order{ID: "b", Side: Sell, Price: d(200_000), Qty: d(1), Status: StatusNew, OnBook: true}
	bidSide := &Order{ID: "c", Side: Buy, Price: d(97_000), Qty: d(1), Status: StatusNew, OnBook: true}

	b := synthesizeBook(p, d(100_000), []*Order{onLevel, offDepth, bidSide})

	// Merged into the existing ask level.
	assert.Equal(t, []string{"a"}, b.Asks[1].Queue)

	// Beyond synthetic depth: its own level, zero synthetic, sorted last.
	require.Len(t, b.Asks, 6)
	requireEq(t, d(200_000), b.Asks[5].Price)
	requireEq(t, decimal.Zero, b.Asks[5].Synthetic)
	assert.Equal(t, []string{"b"}, b.Asks[5].Queue)

	assert.Equal(t, []string{"c"}, b.Bids[3].Queue)
}

func TestSynthesizeBookQueueIsFIFO(t *testing.T) {
	p := testParams()
	first := &Order{ID: "first", Side: Sell, Price: d(101_000), Qty: d(1), Status: StatusNew, OnBook: true}
	second := &Order{ID: "second", Side: Sell, Price: d(101_000), Qty: d(1), Status: StatusNew, OnBook: true}

	b := synthesizeBook(p, d(100_000), []*Order{first, second})
	assert.Equal(t, []string{"first", "second"}, b.Asks[1].Queue)
}

func TestOpposingSides(t *testing.T) {
	b := &Book{Asks: []Level{{Price: d(1)}}, Bids: []Level{{Price: d(2)}}}
	requireEq(t, d(1), b.opposing(Buy)[0].Price)
	requireEq(t, d(2), b.opposing(Sell)[0].Price)
}

func TestValidLimitPrice(t *testing.T) {
	p := testParams()

	assert.True(t, validLimitPrice(p, d(95_000)))
	assert.True(t, validLimitPrice(p, d(1000)))
	assert.False(t, validLimitPrice(p, d(95_500)))
	assert.False(t, validLimitPrice(p, d(95_500.5)))
	assert.False(t, validLimitPrice(p, decimal.Zero))
	assert.False(t, validLimitPrice(p, d(-1000)))
}
