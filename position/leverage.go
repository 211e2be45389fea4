package position

import (
	"math/big"

	"xdxcore/fixedpoint"
)

// LeverageInput describes a position together with a proposed change. Deltas
// of zero leave the corresponding side untouched.
type LeverageInput struct {
	Size               fixedpoint.Quantity
	SizeDelta          fixedpoint.Quantity
	IncreaseSize       bool
	Collateral         fixedpoint.Quantity
	CollateralDelta    fixedpoint.Quantity
	IncreaseCollateral bool

	EntryFundingRate      fixedpoint.Quantity
	CumulativeFundingRate fixedpoint.Quantity

	// HasProfit and Delta carry the unrealized PnL netted into collateral
	// when IncludeDelta is set.
	HasProfit    bool
	Delta        fixedpoint.Quantity
	IncludeDelta bool
}

// Leverage returns the post-trade leverage as a basis-point ratio of
// post-trade size over post-trade net collateral. Net collateral subtracts
// the margin fee on a size change and the accrued funding fee, and
// optionally nets in unrealized PnL. Depleted net collateral reports
// ErrUndercollateralized instead of an unbounded ratio.
func (e *Engine) Leverage(in LeverageInput) (fixedpoint.Quantity, error) {
	if in.Size.IsZero() && in.SizeDelta.IsZero() {
		return fixedpoint.Quantity{}, ErrNoPosition
	}
	if in.Collateral.IsZero() && in.CollateralDelta.IsZero() {
		return fixedpoint.Quantity{}, ErrUndercollateralized
	}

	nextSize := in.Size
	if !in.SizeDelta.IsZero() {
		var err error
		if in.IncreaseSize {
			nextSize, err = in.Size.Add(in.SizeDelta)
		} else {
			nextSize, err = in.Size.Sub(in.SizeDelta)
			if err == nil {
				nextSize, err = nextSize.Unsigned()
			}
		}
		if err != nil {
			return fixedpoint.Quantity{}, err
		}
	}

	remaining := in.Collateral
	if !in.CollateralDelta.IsZero() {
		var err error
		if in.IncreaseCollateral {
			remaining, err = in.Collateral.Add(in.CollateralDelta)
		} else {
			remaining, err = in.Collateral.Sub(in.CollateralDelta)
			if err == nil {
				remaining, err = remaining.Unsigned()
			}
		}
		if err != nil {
			return fixedpoint.Quantity{}, err
		}
	}

	// The margin fee is charged only when size changes.
	if !in.SizeDelta.IsZero() {
		remaining = remaining.MulBps(fixedpoint.BasisPointsDivisor - e.params.MarginFeeBps)
	}

	fundingFee, err := FundingFee(in.Size, in.EntryFundingRate, in.CumulativeFundingRate)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	remaining, err = remaining.Sub(fundingFee)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}

	if in.IncludeDelta && !in.Delta.IsZero() {
		if in.HasProfit {
			remaining, err = remaining.Add(in.Delta)
		} else {
			remaining, err = remaining.Sub(in.Delta)
		}
		if err != nil {
			return fixedpoint.Quantity{}, err
		}
	}

	if remaining.Sign() <= 0 {
		return fixedpoint.Quantity{}, ErrUndercollateralized
	}

	bps, err := fixedpoint.MulDiv(nextSize.Value(), big.NewInt(fixedpoint.BasisPointsDivisor), remaining.Value())
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(bps, fixedpoint.BpsDecimals), nil
}
