package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/decimal"
	"matchcore/domain"
)

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	require.NoError(t, err)
	return d
}

func newOrder(t *testing.T, seq uint64, side domain.Side, price, qty string, clientID string) *domain.Order {
	return &domain.Order{
		Seq:           seq,
		Symbol:        "BTC-USD",
		Side:          side,
		Price:         mustDec(t, price),
		RemainingQty:  mustDec(t, qty),
		ClientOrderID: clientID,
	}
}

func submit(t *testing.T, kind TreeKind) {
	t.Helper()

	t.Run("rest then match", func(t *testing.T) {
		b := NewBook("BTC-USD", kind)

		sell := newOrder(t, 1, domain.Sell, "101", "2", "a")
		fills := b.Match(sell)
		assert.Empty(t, fills)
		b.Rest(sell)

		buy := newOrder(t, 2, domain.Buy, "102", "3", "b")
		fills = b.Match(buy)
		require.Len(t, fills, 1)
		assert.Equal(t, domain.Fill{MakerSeq: 1, TakerSeq: 2, Price: mustDec(t, "101"), Qty: mustDec(t, "2")}, fills[0])
		assert.False(t, buy.IsFilled())
		b.Rest(buy)

		top := b.Top()
		assert.Equal(t, "102", top.BestBidPrice.String())
		assert.Equal(t, "1", top.BestBidQty.String())
		assert.Equal(t, "0", top.BestAskPrice.String())
		assert.Equal(t, "0", top.BestAskQty.String())
	})

	t.Run("fifo at a level", func(t *testing.T) {
		b := NewBook("BTC-USD", kind)

		x := newOrder(t, 1, domain.Sell, "100", "1", "x")
		b.Match(x)
		b.Rest(x)

		y := newOrder(t, 2, domain.Sell, "100", "1", "y")
		b.Match(y)
		b.Rest(y)

		z := newOrder(t, 3, domain.Buy, "100", "1", "z")
		fills := b.Match(z)
		require.Len(t, fills, 1)
		assert.Equal(t, uint64(1), fills[0].MakerSeq)
		assert.True(t, z.IsFilled())

		_, asks := b.Depth(10)
		require.Len(t, asks, 1)
		assert.Equal(t, "100", asks[0].Price.String())
		assert.Equal(t, "1", asks[0].Qty.String())
	})

	t.Run("partial sweep across two levels", func(t *testing.T) {
		b := NewBook("BTC-USD", kind)

		s1 := newOrder(t, 1, domain.Sell, "100", "1", "s1")
		b.Match(s1)
		b.Rest(s1)

		s2 := newOrder(t, 2, domain.Sell, "101", "2", "s2")
		b.Match(s2)
		b.Rest(s2)

		s3 := newOrder(t, 3, domain.Buy, "101", "2", "s3")
		fills := b.Match(s3)
		require.Len(t, fills, 2)
		assert.Equal(t, domain.Fill{MakerSeq: 1, TakerSeq: 3, Price: mustDec(t, "100"), Qty: mustDec(t, "1")}, fills[0])
		assert.Equal(t, domain.Fill{MakerSeq: 2, TakerSeq: 3, Price: mustDec(t, "101"), Qty: mustDec(t, "1")}, fills[1])
		assert.True(t, s3.IsFilled())

		_, asks := b.Depth(10)
		require.Len(t, asks, 1)
		assert.Equal(t, "101", asks[0].Price.String())
		assert.Equal(t, "1", asks[0].Qty.String())
	})

	t.Run("no cross", func(t *testing.T) {
		b := NewBook("BTC-USD", kind)

		buy := newOrder(t, 1, domain.Buy, "99", "5", "buy")
		b.Match(buy)
		b.Rest(buy)

		sell := newOrder(t, 2, domain.Sell, "100", "5", "sell")
		fills := b.Match(sell)
		assert.Empty(t, fills)
		b.Rest(sell)

		top := b.Top()
		assert.Equal(t, "99", top.BestBidPrice.String())
		assert.Equal(t, "5", top.BestBidQty.String())
		assert.Equal(t, "100", top.BestAskPrice.String())
		assert.Equal(t, "5", top.BestAskQty.String())
	})

	t.Run("zero price buy never matches", func(t *testing.T) {
		b := NewBook("BTC-USD", kind)

		buy := newOrder(t, 1, domain.Buy, "0", "1", "buy")
		b.Match(buy)
		b.Rest(buy)

		sell := newOrder(t, 2, domain.Sell, "1", "1", "sell")
		fills := b.Match(sell)
		assert.Empty(t, fills)
	})

	t.Run("level removed once drained", func(t *testing.T) {
		b := NewBook("BTC-USD", kind)

		sell := newOrder(t, 1, domain.Sell, "100", "1", "sell")
		b.Match(sell)
		b.Rest(sell)

		buy := newOrder(t, 2, domain.Buy, "100", "1", "buy")
		fills := b.Match(buy)
		require.Len(t, fills, 1)

		_, asks := b.Depth(10)
		assert.Empty(t, asks)
	})
}

func TestMatchListTree(t *testing.T)     { submit(t, TreeKindList) }
func TestMatchRedBlackTree(t *testing.T) { submit(t, TreeKindRedBlack) }

func TestDepthClampsToNonPositiveLevels(t *testing.T) {
	b := NewBook("BTC-USD", TreeKindRedBlack)
	sell := newOrder(t, 1, domain.Sell, "100", "1", "sell")
	b.Rest(sell)

	bids, asks := b.Depth(0)
	assert.Empty(t, bids)
	assert.Empty(t, asks)

	bids, asks = b.Depth(-3)
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}
