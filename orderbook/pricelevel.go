package orderbook

import (
	"container/list"

	"matchcore/decimal"
	"matchcore/domain"
)

// PriceLevel is a FIFO queue of resting orders at one price, plus a
// cached aggregate quantity for O(1) top-of-book/depth queries.
type PriceLevel struct {
	Price    decimal.Decimal
	Orders   *list.List // of *domain.Order, insertion order == time priority
	TotalQty decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, Orders: list.New()}
}

// pushBack appends an order to the tail of the FIFO and updates the
// cached total.
func (pl *PriceLevel) pushBack(o *domain.Order) {
	elem := pl.Orders.PushBack(o)
	o.SetElement(elem)
	pl.TotalQty = pl.TotalQty.Add(o.RemainingQty)
}

// front returns the head of the FIFO (the next order to fill), or nil
// if the level is empty.
func (pl *PriceLevel) front() *domain.Order {
	e := pl.Orders.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*domain.Order)
}

// popFront removes the head of the FIFO.
func (pl *PriceLevel) popFront() {
	e := pl.Orders.Front()
	if e == nil {
		return
	}
	pl.Orders.Remove(e)
}

// reduce applies a fill of qty to the cached total.
func (pl *PriceLevel) reduce(qty decimal.Decimal) {
	pl.TotalQty = pl.TotalQty.Sub(qty)
}

func (pl *PriceLevel) empty() bool { return pl.Orders.Len() == 0 }

// Count returns the number of resting orders in the level.
func (pl *PriceLevel) Count() int { return pl.Orders.Len() }
