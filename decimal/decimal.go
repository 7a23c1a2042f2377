// Package decimal provides the exact-precision price and quantity type
// used throughout the matching engine. It wraps shopspring/decimal so
// that every component agrees on one representation and one canonical
// string form for the wire.
package decimal

import (
	"fmt"

	shopspring "github.com/shopspring/decimal"
)

// Decimal is an exact, arbitrary-precision decimal value. The zero value
// is a valid representation of 0.
type Decimal struct {
	d shopspring.Decimal
}

// Zero is the canonical zero value.
var Zero = Decimal{d: shopspring.Zero}

// ValidationError reports why a string or value failed to become a
// valid Price or Quantity.
type ValidationError struct {
	Field string // "price", "quantity", or "decimal" (from Parse)
	Input string
	Cause error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Input, e.Cause)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Input)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Parse parses s into a Decimal without any sign constraint.
func Parse(s string) (Decimal, error) {
	d, err := shopspring.NewFromString(s)
	if err != nil {
		return Decimal{}, &ValidationError{Field: "decimal", Input: s, Cause: err}
	}
	return Decimal{d: d}, nil
}

// ParsePrice parses s as a price: must parse and must be non-negative.
// A price of exactly zero is valid (spec: a resting buy at 0 will never
// match, but submitting one is not an error).
func ParsePrice(s string) (Decimal, error) {
	v, err := Parse(s)
	if err != nil {
		return Decimal{}, &ValidationError{Field: "price", Input: s, Cause: err}
	}
	if v.d.IsNegative() {
		return Decimal{}, &ValidationError{Field: "price", Input: s, Cause: fmt.Errorf("must be non-negative")}
	}
	return v, nil
}

// ParseQuantity parses s as a quantity: must parse and must be strictly
// positive.
func ParseQuantity(s string) (Decimal, error) {
	v, err := Parse(s)
	if err != nil {
		return Decimal{}, &ValidationError{Field: "quantity", Input: s, Cause: err}
	}
	if !v.d.IsPositive() {
		return Decimal{}, &ValidationError{Field: "quantity", Input: s, Cause: fmt.Errorf("must be strictly positive")}
	}
	return v, nil
}

// String renders the canonical decimal string: no exponents, no
// trailing zero drift, no "-0".
func (d Decimal) String() string {
	if d.d.IsZero() {
		return "0"
	}
	return d.d.String()
}

// IsZero reports whether d is exactly zero.
func (d Decimal) IsZero() bool { return d.d.IsZero() }

// IsPositive reports whether d is strictly greater than zero.
func (d Decimal) IsPositive() bool { return d.d.IsPositive() }

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than
// other, comparing by numeric value (never textual form).
func (d Decimal) Cmp(other Decimal) int { return d.d.Cmp(other.d) }

// LessThan reports whether d < other.
func (d Decimal) LessThan(other Decimal) bool { return d.d.LessThan(other.d) }

// GreaterThan reports whether d > other.
func (d Decimal) GreaterThan(other Decimal) bool { return d.d.GreaterThan(other.d) }

// Equal reports whether d == other by numeric value.
func (d Decimal) Equal(other Decimal) bool { return d.d.Equal(other.d) }

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal { return Decimal{d: d.d.Add(other.d)} }

// Sub returns d - other.
func (d Decimal) Sub(other Decimal) Decimal { return Decimal{d: d.d.Sub(other.d)} }

// Min returns the smaller of a and b.
func Min(a, b Decimal) Decimal {
	if a.d.LessThan(b.d) {
		return a
	}
	return b
}

// MarshalJSON renders the canonical decimal string form; decimals are
// always transmitted as strings to avoid float round-tripping.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
