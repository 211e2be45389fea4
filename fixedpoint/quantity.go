package fixedpoint

import (
	"fmt"
	"math/big"
)

// Decimal precisions shared across the pricing core. Every integer amount in
// the system is interpreted against one of these scales.
const (
	// USDDecimals is the precision of USD denominated values.
	USDDecimals = 30
	// USDGDecimals is the precision of the internal stable unit of account.
	USDGDecimals = 18
	// BpsDecimals is the precision of basis-point ratios.
	BpsDecimals = 4
	// BasisPointsDivisor converts a basis-point figure into a plain ratio.
	BasisPointsDivisor = 10_000
	// FundingRatePrecision scales cumulative funding rate figures.
	FundingRatePrecision = 1_000_000
)

// maxParseDigits bounds parsed magnitudes; anything larger is treated as a
// corrupt input rather than a price.
const maxParseDigits = 72

// Precision is the fixed scale used for exchange rates, 10^USDDecimals.
var Precision = Expand(1, USDDecimals)

// Quantity is an integer value paired with an explicit decimal precision.
// Combining quantities of differing precision without a rescale is a contract
// violation and reports ErrPrecisionMismatch. The zero value is a
// precision-agnostic zero: it combines with any quantity and adopts its
// precision.
type Quantity struct {
	value    *big.Int
	decimals int32
}

// New wraps value at the given precision. The value is copied; the zero value
// of Quantity behaves as zero at precision 0.
func New(value *big.Int, decimals int32) Quantity {
	q := Quantity{value: big.NewInt(0), decimals: decimals}
	if value != nil {
		q.value.Set(value)
	}
	return q
}

// FromInt64 builds a quantity from an unscaled integer, e.g. FromInt64(30,
// BpsDecimals) for thirty basis points.
func FromInt64(value int64, decimals int32) Quantity {
	return Quantity{value: big.NewInt(value), decimals: decimals}
}

// Zero returns the zero quantity at the given precision.
func Zero(decimals int32) Quantity {
	return Quantity{value: big.NewInt(0), decimals: decimals}
}

// Expand returns n * 10^decimals as a fresh big integer.
func Expand(n int64, decimals int32) *big.Int {
	scale := pow10(decimals)
	return scale.Mul(scale, big.NewInt(n))
}

// Scaled returns n expanded to the quantity precision, e.g. Scaled(1800,
// USDDecimals) for an 1800 USD price.
func Scaled(n int64, decimals int32) Quantity {
	return Quantity{value: Expand(n, decimals), decimals: decimals}
}

func pow10(decimals int32) *big.Int {
	if decimals < 0 {
		decimals = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// Value returns a defensive copy of the raw integer value.
func (q Quantity) Value() *big.Int {
	if q.value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(q.value)
}

// Decimals reports the decimal precision the value is scaled by.
func (q Quantity) Decimals() int32 { return q.decimals }

// Sign reports -1, 0 or +1.
func (q Quantity) Sign() int {
	if q.value == nil {
		return 0
	}
	return q.value.Sign()
}

// IsZero reports whether the quantity equals zero.
func (q Quantity) IsZero() bool { return q.Sign() == 0 }

// IsPositive reports whether the quantity is strictly greater than zero.
func (q Quantity) IsPositive() bool { return q.Sign() > 0 }

func (q Quantity) raw() *big.Int {
	if q.value == nil {
		return big.NewInt(0)
	}
	return q.value
}

func (q Quantity) samePrecision(o Quantity) error {
	if q.value == nil || o.value == nil {
		return nil
	}
	if q.decimals != o.decimals {
		return fmt.Errorf("%w: %d vs %d", ErrPrecisionMismatch, q.decimals, o.decimals)
	}
	return nil
}

func (q Quantity) jointDecimals(o Quantity) int32 {
	if q.value == nil {
		return o.decimals
	}
	return q.decimals
}

// Add returns q + o. Both operands must share a precision.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	if err := q.samePrecision(o); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: new(big.Int).Add(q.raw(), o.raw()), decimals: q.jointDecimals(o)}, nil
}

// Sub returns q - o. Both operands must share a precision. The result may be
// negative; callers computing amounts or fees should follow with Unsigned.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if err := q.samePrecision(o); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: new(big.Int).Sub(q.raw(), o.raw()), decimals: q.jointDecimals(o)}, nil
}

// Unsigned returns q unchanged when non-negative and ErrUnderflow otherwise.
func (q Quantity) Unsigned() (Quantity, error) {
	if q.Sign() < 0 {
		return Quantity{}, ErrUnderflow
	}
	return q, nil
}

// Cmp compares two quantities of equal precision.
func (q Quantity) Cmp(o Quantity) (int, error) {
	if err := q.samePrecision(o); err != nil {
		return 0, err
	}
	return q.raw().Cmp(o.raw()), nil
}

// Neg returns -q.
func (q Quantity) Neg() Quantity {
	return Quantity{value: new(big.Int).Neg(q.raw()), decimals: q.decimals}
}

// Abs returns |q|.
func (q Quantity) Abs() Quantity {
	return Quantity{value: new(big.Int).Abs(q.raw()), decimals: q.decimals}
}

// Min returns the smaller of two quantities of equal precision.
func (q Quantity) Min(o Quantity) (Quantity, error) {
	cmp, err := q.Cmp(o)
	if err != nil {
		return Quantity{}, err
	}
	if cmp <= 0 {
		return q, nil
	}
	return o, nil
}

// Rescale converts the quantity to another precision using truncating
// division when precision is reduced.
func (q Quantity) Rescale(decimals int32) Quantity {
	return Quantity{value: AdjustForDecimals(q.raw(), q.decimals, decimals), decimals: decimals}
}

// MulBps scales the quantity by a basis-point figure, truncating toward zero.
func (q Quantity) MulBps(bps uint64) Quantity {
	if q.value == nil {
		return q
	}
	v := new(big.Int).Mul(q.raw(), new(big.Int).SetUint64(bps))
	v.Quo(v, big.NewInt(BasisPointsDivisor))
	return Quantity{value: v, decimals: q.decimals}
}

// String renders the raw integer with a precision suffix, for logs and
// test failures only.
func (q Quantity) String() string {
	return fmt.Sprintf("%s@%d", q.raw().String(), q.decimals)
}
