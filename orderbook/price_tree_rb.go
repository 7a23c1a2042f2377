package orderbook

import (
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"matchcore/decimal"
)

// rbPriceTree backs one side of the book with a red-black tree ordered
// by price, giving O(log L) insert/remove/best. It plays the role a
// sharded fixed-width-bucket price index plays for small dense integer
// keys, but arbitrary-precision decimal prices have no such bound, so
// this keeps the "ordered tree of price levels" idea without the bucket
// layer, applying the comparator directly to decimal.Decimal.
type rbPriceTree struct {
	tree       *rbt.Tree[decimal.Decimal, *PriceLevel]
	descending bool
}

func newRBPriceTree(descending bool) *rbPriceTree {
	cmp := func(a, b decimal.Decimal) int {
		if descending {
			return -a.Cmp(b)
		}
		return a.Cmp(b)
	}
	return &rbPriceTree{
		tree:       rbt.NewWith[decimal.Decimal, *PriceLevel](cmp),
		descending: descending,
	}
}

func (t *rbPriceTree) insert(level *PriceLevel) {
	t.tree.Put(level.Price, level)
}

func (t *rbPriceTree) remove(price decimal.Decimal) {
	t.tree.Remove(price)
}

func (t *rbPriceTree) get(price decimal.Decimal) (*PriceLevel, bool) {
	return t.tree.Get(price)
}

func (t *rbPriceTree) best() (*PriceLevel, bool) {
	it := t.tree.Iterator()
	if !it.Next() {
		return nil, false
	}
	return it.Value(), true
}

func (t *rbPriceTree) depth(n int) []*PriceLevel {
	if n <= 0 {
		return nil
	}
	out := make([]*PriceLevel, 0, n)
	it := t.tree.Iterator()
	for it.Next() && len(out) < n {
		out = append(out, it.Value())
	}
	return out
}

func (t *rbPriceTree) len() int { return t.tree.Size() }
