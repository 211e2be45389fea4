package fixedpoint

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MulDiv computes a*b/c with truncation toward zero and no intermediate
// overflow. Truncation direction is significant: the protocol rounds down in
// its own favour and the off-chain math must match settlement bit for bit.
func MulDiv(a, b, c *big.Int) (*big.Int, error) {
	if c == nil || c.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	if a == nil || b == nil {
		return big.NewInt(0), nil
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, c), nil
}

// AdjustForDecimals rescales value from one decimal precision to another,
// truncating toward zero when precision is reduced.
func AdjustForDecimals(value *big.Int, fromDecimals, toDecimals int32) *big.Int {
	if value == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Set(value)
	switch {
	case toDecimals > fromDecimals:
		out.Mul(out, pow10(toDecimals-fromDecimals))
	case toDecimals < fromDecimals:
		out.Quo(out, pow10(fromDecimals-toDecimals))
	}
	return out
}

// MulDivQuantity computes q*b/c on the raw values, keeping q's precision.
// b and c are treated as a dimensionless ratio and must share a precision.
func MulDivQuantity(q, b, c Quantity) (Quantity, error) {
	if err := b.samePrecision(c); err != nil {
		return Quantity{}, err
	}
	v, err := MulDiv(q.raw(), b.raw(), c.raw())
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: v, decimals: q.decimals}, nil
}

// Parse converts a human decimal string like "100.5" into a quantity at the
// given precision. Fractional digits beyond the precision are rejected rather
// than silently truncated.
func Parse(s string, decimals int32) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero(decimals), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, err
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return Quantity{}, ErrPrecisionMismatch
	}
	v := scaled.BigInt()
	if len(v.Text(10)) > maxParseDigits {
		return Quantity{}, ErrOverflow
	}
	return Quantity{value: v, decimals: decimals}, nil
}

// Format renders the quantity as a human decimal string with up to
// displayDecimals fractional digits. Presentation only.
func Format(q Quantity, displayDecimals int32) string {
	d := decimal.NewFromBigInt(q.raw(), -q.decimals)
	if displayDecimals >= 0 {
		d = d.Truncate(displayDecimals)
	}
	return d.String()
}
