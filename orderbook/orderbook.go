// Package orderbook implements the per-symbol price-time priority
// order book and its matching algorithm.
package orderbook

import (
	"fmt"

	"matchcore/decimal"
	"matchcore/domain"
)

// Book is one symbol's order book: two ordered price-to-level trees,
// bids descending by price and asks ascending, each a FIFO per level.
type Book struct {
	Symbol string
	bids   priceTree
	asks   priceTree
}

// NewBook creates an empty book for symbol using the given price tree
// implementation for both sides.
func NewBook(symbol string, kind TreeKind) *Book {
	return &Book{
		Symbol: symbol,
		bids:   newPriceTree(kind, true),
		asks:   newPriceTree(kind, false),
	}
}

func (b *Book) sideTree(side domain.Side) priceTree {
	if side == domain.Buy {
		return b.bids
	}
	return b.asks
}

// crosses reports whether a resting level at levelPrice on the
// opposite side of taker would cross against a taker of side/price.
func crosses(takerSide domain.Side, takerPrice, levelPrice decimal.Decimal) bool {
	if takerSide == domain.Buy {
		return levelPrice.Cmp(takerPrice) <= 0
	}
	return levelPrice.Cmp(takerPrice) >= 0
}

// Match runs the price-time priority matching algorithm for an incoming
// taker order against the opposite side of the book. It mutates
// resting maker orders and levels in place, reduces the taker's
// RemainingQty by each fill (the caller rests the taker if any quantity
// is left), and returns the ordered fills produced.
//
// Match does not itself insert the taker into the book: the sequencer
// owns sequencing the WAL record for any residual quantity, so resting
// is a separate, explicit call to Rest.
func (b *Book) Match(taker *domain.Order) []domain.Fill {
	opposite := b.sideTree(taker.Side.Opposite())
	var fills []domain.Fill

	for !taker.RemainingQty.IsZero() {
		level, ok := opposite.best()
		if !ok {
			break
		}
		if !crosses(taker.Side, taker.Price, level.Price) {
			break
		}

		for !taker.RemainingQty.IsZero() {
			maker := level.front()
			if maker == nil {
				break
			}

			qty := decimal.Min(taker.RemainingQty, maker.RemainingQty)
			if qty.IsZero() {
				break
			}

			fills = append(fills, domain.Fill{
				MakerSeq: maker.Seq,
				TakerSeq: taker.Seq,
				Price:    level.Price,
				Qty:      qty,
			})

			maker.Fill(qty)
			taker.Fill(qty)
			level.reduce(qty)

			if maker.IsFilled() {
				level.popFront()
			}
		}

		if level.empty() {
			opposite.remove(level.Price)
		}
	}

	return fills
}

// Rest inserts order at the tail of the FIFO for its (side, price),
// creating the level if it does not yet exist. Callers must only rest
// orders with positive RemainingQty.
func (b *Book) Rest(order *domain.Order) {
	tree := b.sideTree(order.Side)
	level, ok := tree.get(order.Price)
	if !ok {
		level = newPriceLevel(order.Price)
		tree.insert(level)
	}
	level.pushBack(order)
}

// ApplyFill reduces the maker resting at (side, price) by qty without
// running the matching loop. It is used by recovery to reconstruct book
// state directly from a recorded Trade, since this implementation's WAL
// durability policy records every fill and replay is a straight-line
// reconstruction rather than a re-run of the matching algorithm.
// makerSeq must name the order currently at the front of that level's
// FIFO, matching the order matching would have picked.
func (b *Book) ApplyFill(side domain.Side, price decimal.Decimal, makerSeq uint64, qty decimal.Decimal) error {
	tree := b.sideTree(side)
	level, ok := tree.get(price)
	if !ok {
		return fmt.Errorf("orderbook: no resting level at %s %s for recorded fill", side, price.String())
	}
	maker := level.front()
	if maker == nil || maker.Seq != makerSeq {
		return fmt.Errorf("orderbook: recorded fill maker_seq %d does not match level head", makerSeq)
	}

	maker.Fill(qty)
	level.reduce(qty)
	if maker.IsFilled() {
		level.popFront()
	}
	if level.empty() {
		tree.remove(price)
	}
	return nil
}

// AllOrders returns every resting order in the book: bids first
// (highest price to lowest, FIFO within a level), then asks (lowest to
// highest, FIFO within a level). Used by snapshotting and recovery to
// enumerate book state without depending on price-tree internals.
func (b *Book) AllOrders() []*domain.Order {
	var out []*domain.Order
	for _, level := range b.bids.depth(b.bids.len()) {
		for e := level.Orders.Front(); e != nil; e = e.Next() {
			out = append(out, e.Value.(*domain.Order))
		}
	}
	for _, level := range b.asks.depth(b.asks.len()) {
		for e := level.Orders.Front(); e != nil; e = e.Next() {
			out = append(out, e.Value.(*domain.Order))
		}
	}
	return out
}

// TopOfBook is the best bid/ask summary.
type TopOfBook struct {
	BestBidPrice decimal.Decimal
	BestBidQty   decimal.Decimal
	BestAskPrice decimal.Decimal
	BestAskQty   decimal.Decimal
}

// Top returns the current top-of-book. Absent sides report canonical
// zero.
func (b *Book) Top() TopOfBook {
	top := TopOfBook{}
	if level, ok := b.bids.best(); ok {
		top.BestBidPrice = level.Price
		top.BestBidQty = level.TotalQty
	}
	if level, ok := b.asks.best(); ok {
		top.BestAskPrice = level.Price
		top.BestAskQty = level.TotalQty
	}
	return top
}

// DepthLevel is one aggregated price level in a depth response.
type DepthLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Depth returns up to levels aggregated price levels per side, bids
// high→low and asks low→high. levels <= 0 yields empty slices.
func (b *Book) Depth(levels int) (bids, asks []DepthLevel) {
	bids = []DepthLevel{}
	asks = []DepthLevel{}
	for _, l := range b.bids.depth(levels) {
		bids = append(bids, DepthLevel{Price: l.Price, Qty: l.TotalQty})
	}
	for _, l := range b.asks.depth(levels) {
		asks = append(asks, DepthLevel{Price: l.Price, Qty: l.TotalQty})
	}
	return bids, asks
}
