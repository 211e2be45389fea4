package rates

import (
	"fmt"

	"github.com/shopspring/decimal"

	"xdxcore/fixedpoint"
	"xdxcore/tokens"
)

// DisplayOptions control rate formatting.
type DisplayOptions struct {
	// OmitSymbols drops the pair suffix.
	OmitSymbols bool
	// Digits is the number of fractional digits; defaults to 4.
	Digits int32
}

// Display renders a canonical ratio in the pair's display orientation.
// Formatting only: the returned string must never be parsed back for
// validation comparisons.
func Display(ratio fixedpoint.Quantity, give, get *tokens.Quote, opts DisplayOptions) string {
	if give == nil || get == nil || ratio.IsZero() {
		return ""
	}
	digits := opts.Digits
	if digits <= 0 {
		digits = 4
	}
	// The canonical ratio counts received tokens per given token, so the
	// natural label is "get / give"; inversion flips both value and label.
	shown := ratio
	first, second := get, give
	if Inverted(give, get) {
		inv, err := Canonical(ratio, true)
		if err != nil {
			return ""
		}
		shown = inv
		first, second = give, get
	}
	d := decimal.NewFromBigInt(shown.Value(), -shown.Decimals()).Truncate(digits)
	if opts.OmitSymbols {
		return d.String()
	}
	return fmt.Sprintf("%s %s / %s", d.String(), first.Symbol, second.Symbol)
}
