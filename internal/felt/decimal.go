package felt

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the conventional 18-decimal token scale. ToDecimal does
// not fall back to it: every caller passes the scale explicitly.
const DefaultDecimals = 18

// ToDecimal implements spec §4.1: to_decimal(n, d) = n / 10^d, using
// arbitrary-precision decimal arithmetic so USD accumulation never loses
// precision to float64 rounding.
func ToDecimal(n *uint256.Int, d uint8) decimal.Decimal {
	val := decimal.RequireFromString(n.Dec())
	return val.Shift(-int32(d))
}

// Price implements spec §4.1: price(a, b) = a/b if b != 0 else 0.
func Price(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
