// Package rates computes spot and trigger exchange rates between token pairs.
// All stored ratios use a single canonical orientation; inversion for display
// or user entry is an explicit transform, never an implicit convention.
package rates

import (
	"errors"

	"xdxcore/fixedpoint"
	"xdxcore/tokens"
)

// ErrMissingPrice is returned when either side of a pair has no usable quote.
var ErrMissingPrice = errors.New("rates: pair side has no price")

// Rate returns the canonical exchange rate for giving tokenA and receiving
// tokenB: tokenA.MaxPrice * PRECISION / tokenB.MinPrice. The conservative
// quote sides bias the rate against the trader, matching settlement.
// The result carries USD precision (the fixed ratio scale).
func Rate(give, get *tokens.Quote) (fixedpoint.Quantity, error) {
	if !give.HasPrices() || !get.HasPrices() {
		return fixedpoint.Quantity{}, ErrMissingPrice
	}
	v, err := fixedpoint.MulDiv(give.MaxPrice.Value(), fixedpoint.Precision, get.MinPrice.Value())
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(v, fixedpoint.USDDecimals), nil
}

// Inverted reports whether a user-entered trigger ratio for the pair is
// displayed in the opposite orientation from the canonical stored ratio.
// The canonical ratio counts received tokens per given token; the display
// convention always quotes stable-per-volatile, so the pair is inverted
// exactly when the given token is the stable (or USDG) side. When neither
// or both sides are stable, the higher-priced token is quoted first.
func Inverted(give, get *tokens.Quote) bool {
	if give == nil || get == nil {
		return false
	}
	giveStable := give.IsStable || give.IsUSDG
	getStable := get.IsStable || get.IsUSDG
	if giveStable && !getStable {
		return true
	}
	if getStable && !giveStable {
		return false
	}
	if get.MaxPrice.IsPositive() && give.MaxPrice.IsPositive() {
		if cmp, err := give.MaxPrice.Cmp(get.MaxPrice); err == nil {
			return cmp < 0
		}
	}
	return false
}

// Canonical converts a ratio out of display orientation into the canonical
// stored orientation by computing PRECISION^2 / ratio when inverted. The
// stored ratio is the single source of truth for comparisons against the
// market rate; display-time inversion must never feed back into it.
func Canonical(entered fixedpoint.Quantity, inverted bool) (fixedpoint.Quantity, error) {
	if !inverted {
		return entered, nil
	}
	if entered.IsZero() {
		return fixedpoint.Quantity{}, fixedpoint.ErrDivisionByZero
	}
	v, err := fixedpoint.MulDiv(fixedpoint.Precision, fixedpoint.Precision, entered.Value())
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(v, fixedpoint.USDDecimals), nil
}
