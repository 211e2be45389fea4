package position

import (
	"xdxcore/fixedpoint"
)

// NextAveragePrice blends the entry price of a position being increased by
// sizeDelta at nextPrice so that the unrealized PnL at nextPrice is unchanged
// by the increase. Delta and hasProfit describe the PnL of the existing size
// at nextPrice. Undefined when there is no existing size, no increase, or no
// price; profit shrinks the divisor's offset for shorts and grows it for
// longs.
func NextAveragePrice(size, sizeDelta, delta, nextPrice fixedpoint.Quantity, hasProfit, isLong bool) (fixedpoint.Quantity, error) {
	if size.IsZero() || sizeDelta.IsZero() {
		return fixedpoint.Quantity{}, ErrNoPosition
	}
	if !nextPrice.IsPositive() {
		return fixedpoint.Quantity{}, ErrNoPosition
	}

	nextSize, err := size.Add(sizeDelta)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}

	var divisor fixedpoint.Quantity
	if isLong == hasProfit {
		divisor, err = nextSize.Add(delta)
	} else {
		divisor, err = nextSize.Sub(delta)
	}
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	if divisor.Sign() <= 0 {
		return fixedpoint.Quantity{}, fixedpoint.ErrDivisionByZero
	}

	v, err := fixedpoint.MulDiv(nextPrice.Value(), nextSize.Value(), divisor.Value())
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(v, fixedpoint.USDDecimals), nil
}
