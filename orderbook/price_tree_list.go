package orderbook

import "matchcore/decimal"

// listPriceTree is a hash map of price levels threaded through a
// doubly linked list kept in priority order, with a direct pointer to
// the best level. Generalized from an int64 price key to the canonical
// decimal string
// (decimal values compare by numeric value, not text, but two
// canonical strings are equal iff the values are equal, which is all a
// map key needs).
type listPriceTree struct {
	levels     map[string]*listNode
	bestNode   *listNode
	descending bool
}

type listNode struct {
	level *PriceLevel
	next  *listNode
	prev  *listNode
}

func newListPriceTree(descending bool) *listPriceTree {
	return &listPriceTree{
		levels:     make(map[string]*listNode),
		descending: descending,
	}
}

func (t *listPriceTree) betterThan(a, b decimal.Decimal) bool {
	if t.descending {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

func (t *listPriceTree) insert(level *PriceLevel) {
	node := &listNode{level: level}
	t.levels[level.Price.String()] = node

	if t.bestNode == nil {
		t.bestNode = node
		return
	}
	if t.betterThan(level.Price, t.bestNode.level.Price) {
		node.next = t.bestNode
		t.bestNode.prev = node
		t.bestNode = node
		return
	}
	cur := t.bestNode
	for cur.next != nil && !t.betterThan(level.Price, cur.next.level.Price) {
		cur = cur.next
	}
	node.next = cur.next
	node.prev = cur
	if cur.next != nil {
		cur.next.prev = node
	}
	cur.next = node
}

func (t *listPriceTree) remove(price decimal.Decimal) {
	key := price.String()
	node, ok := t.levels[key]
	if !ok {
		return
	}
	delete(t.levels, key)

	if node.prev != nil {
		node.prev.next = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	}
	if t.bestNode == node {
		t.bestNode = node.next
	}
}

func (t *listPriceTree) get(price decimal.Decimal) (*PriceLevel, bool) {
	node, ok := t.levels[price.String()]
	if !ok {
		return nil, false
	}
	return node.level, true
}

func (t *listPriceTree) best() (*PriceLevel, bool) {
	if t.bestNode == nil {
		return nil, false
	}
	return t.bestNode.level, true
}

func (t *listPriceTree) depth(n int) []*PriceLevel {
	if n <= 0 {
		return nil
	}
	out := make([]*PriceLevel, 0, n)
	for cur := t.bestNode; cur != nil && len(out) < n; cur = cur.next {
		out = append(out, cur.level)
	}
	return out
}

func (t *listPriceTree) len() int { return len(t.levels) }
