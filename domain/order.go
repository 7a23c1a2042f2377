// Package domain defines the core value types shared by the order book
// and the sequencer: orders, sides, fills, and trades.
package domain

import (
	"fmt"

	"matchcore/decimal"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// ParseSide parses the wire representation of a side.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "BUY", "buy":
		return Buy, true
	case "SELL", "sell":
		return Sell, true
	default:
		return 0, false
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// MarshalJSON renders the side as its wire string ("BUY"/"SELL").
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the wire string form of a side.
func (s *Side) UnmarshalJSON(b []byte) error {
	str := string(b)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	side, ok := ParseSide(str)
	if !ok {
		return fmt.Errorf("domain: invalid side %q", str)
	}
	*s = side
	return nil
}

// Order is a resting order in a price level's FIFO queue.
//
// Seq is assigned once at acceptance by the sequencer and never
// changes; it is the order's identity for the lifetime of the process
// and across recovery.
type Order struct {
	Seq           uint64
	Symbol        string
	Side          Side
	Price         decimal.Decimal
	RemainingQty  decimal.Decimal
	ClientOrderID string

	// elem is the order's position in its price level's FIFO list, set
	// by orderbook.PriceLevel on insertion. Declared here (rather than
	// forcing the book to keep a side index) because it gives O(1)
	// removal without a separate cancel index, which order cancellation
	// would need and which is out of scope here.
	elem any
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool { return o.RemainingQty.IsZero() }

// Fill reduces the order's remaining quantity by qty. Callers are
// responsible for ensuring qty never exceeds RemainingQty.
func (o *Order) Fill(qty decimal.Decimal) { o.RemainingQty = o.RemainingQty.Sub(qty) }

// Element returns the order's FIFO list element, or nil if unset.
func (o *Order) Element() any { return o.elem }

// SetElement records the order's FIFO list element.
func (o *Order) SetElement(e any) { o.elem = e }
