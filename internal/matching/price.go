package matching

import "fmt"

// scale is the number of minor units per major unit: 10000 ticks per
// whole price point (four decimal digits of precision).
const scale = 10000

// Price is a non-negative fixed-point value with a fixed fractional scale.
// It never round-trips through float64 in the comparator path; only the
// constructor accepts one, for call-site convenience.
type Price struct {
	integral   uint64
	fractional uint64
	valid      bool
}

// Invalid is the distinguished "no price" value used for market orders.
// It must never be inserted into a SideBook.
var Invalid = Price{}

// NewPrice builds a valid Price from an explicit integral/fractional pair.
func NewPrice(integral, fractional uint64) Price {
	return Price{integral: integral, fractional: fractional % scale, valid: true}
}

// NewPriceFromFloat truncates toward zero at 1/scale resolution.
func NewPriceFromFloat(f float64) Price {
	if f < 0 {
		f = 0
	}
	integral := uint64(f)
	fractional := uint64((f - float64(integral)) * scale)
	return Price{integral: integral, fractional: fractional, valid: true}
}

// IsValid reports whether p can participate in comparisons or be inserted
// into a book.
func (p Price) IsValid() bool { return p.valid }

func (p Price) Integral() uint64 { return p.integral }

func (p Price) Fractional() uint64 { return p.fractional }

// Equal compares two prices, including their validity bit. Two Invalid
// prices are equal to each other only by that shared sentinel identity;
// callers must not rely on Equal to order them.
func (p Price) Equal(other Price) bool {
	if p.valid != other.valid {
		return false
	}
	if !p.valid {
		return true
	}
	return p.integral == other.integral && p.fractional == other.fractional
}

// Less implements the strict weak order: by integral, then fractional.
// Ordering an Invalid price is a programming error and panics, matching
// the fatal BookInvariantViolation class of error for misuse that should
// be unreachable by construction.
func (p Price) Less(other Price) bool {
	if !p.valid || !other.valid {
		panic("matching: cannot order an invalid price")
	}
	if p.integral != other.integral {
		return p.integral < other.integral
	}
	return p.fractional < other.fractional
}

// Greater is the mirror of Less, used by the descending bid comparator.
func (p Price) Greater(other Price) bool {
	return other.Less(p)
}

func (p Price) String() string {
	if !p.valid {
		return "INVALID"
	}
	return fmt.Sprintf("%d.%d", p.integral, p.fractional)
}
