package orderbook

import "matchcore/decimal"

// priceTree is the ordered-map abstraction one side of a book needs:
// holding price levels in priority order (descending for bids,
// ascending for asks). Two implementations are provided; see
// price_tree_list.go and price_tree_rb.go.
type priceTree interface {
	// insert adds a new, previously-absent level. Callers must not
	// insert a level for a price already present.
	insert(level *PriceLevel)

	// remove deletes the level at price, if present.
	remove(price decimal.Decimal)

	// get returns the level at price, if present.
	get(price decimal.Decimal) (*PriceLevel, bool)

	// best returns the highest-priority level (best bid or best ask),
	// or false if the tree is empty.
	best() (*PriceLevel, bool)

	// depth returns up to n levels in priority order.
	depth(n int) []*PriceLevel

	// len returns the number of distinct price levels.
	len() int
}

// TreeKind selects a priceTree implementation. Both are fully
// functional; the comments on each constant state its costs.
type TreeKind int

const (
	// TreeKindList backs the book with a hash map + doubly linked list
	// of levels, with a direct pointer to the best level (O(1) best
	// price, O(n) worst-case insert of a brand new price).
	TreeKindList TreeKind = iota

	// TreeKindRedBlack backs the book with a red-black tree ordered by
	// price (O(log L) insert/remove/best).
	TreeKindRedBlack
)

func newPriceTree(kind TreeKind, descending bool) priceTree {
	switch kind {
	case TreeKindRedBlack:
		return newRBPriceTree(descending)
	default:
		return newListPriceTree(descending)
	}
}
