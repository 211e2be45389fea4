package position

import (
	"xdxcore/fixedpoint"
)

// LiquidationInput projects a position through an optional size and
// collateral change before solving for the liquidation price. Delta and
// HasProfit carry unrealized PnL; with IncludeDelta set, the share of an
// unrealized loss attributable to the closed size is charged to collateral.
type LiquidationInput struct {
	Size               fixedpoint.Quantity
	Collateral         fixedpoint.Quantity
	AveragePrice       fixedpoint.Quantity
	IsLong             bool
	SizeDelta          fixedpoint.Quantity
	IncreaseSize       bool
	CollateralDelta    fixedpoint.Quantity
	IncreaseCollateral bool

	EntryFundingRate      fixedpoint.Quantity
	CumulativeFundingRate fixedpoint.Quantity

	HasProfit    bool
	Delta        fixedpoint.Quantity
	IncludeDelta bool
}

// LiquidationPrice solves for the mark price at which the projected
// position's collateral is exactly consumed by fees plus the adverse price
// move. Longs liquidate below the average price and shorts above it, unless
// fees alone exceed collateral, in which case the position is liquidatable on
// the wrong side of entry and the branch flips.
func (e *Engine) LiquidationPrice(in LiquidationInput) (fixedpoint.Quantity, error) {
	if in.Size.IsZero() && (in.SizeDelta.IsZero() || !in.IncreaseSize) {
		return fixedpoint.Quantity{}, ErrNoPosition
	}
	if !in.AveragePrice.IsPositive() {
		return fixedpoint.Quantity{}, ErrNoPosition
	}

	nextSize := in.Size
	remaining := in.Collateral
	var err error

	if !in.SizeDelta.IsZero() {
		if in.IncreaseSize {
			nextSize, err = in.Size.Add(in.SizeDelta)
			if err != nil {
				return fixedpoint.Quantity{}, err
			}
		} else {
			cmp, err := in.SizeDelta.Cmp(in.Size)
			if err != nil {
				return fixedpoint.Quantity{}, err
			}
			if cmp >= 0 {
				return fixedpoint.Quantity{}, ErrNoPosition
			}
			nextSize, err = in.Size.Sub(in.SizeDelta)
			if err != nil {
				return fixedpoint.Quantity{}, err
			}
			// Closing part of a losing position realizes a proportional share
			// of the loss out of collateral.
			if in.IncludeDelta && !in.HasProfit {
				adjusted, err := fixedpoint.MulDivQuantity(in.Delta, in.SizeDelta, in.Size)
				if err != nil {
					return fixedpoint.Quantity{}, err
				}
				remaining, err = remaining.Sub(adjusted)
				if err != nil {
					return fixedpoint.Quantity{}, err
				}
			}
		}
	}

	if !in.CollateralDelta.IsZero() {
		if in.IncreaseCollateral {
			remaining, err = remaining.Add(in.CollateralDelta)
		} else {
			cmp, cmpErr := in.CollateralDelta.Cmp(remaining)
			if cmpErr != nil {
				return fixedpoint.Quantity{}, cmpErr
			}
			if cmp >= 0 {
				return fixedpoint.Quantity{}, ErrUndercollateralized
			}
			remaining, err = remaining.Sub(in.CollateralDelta)
		}
		if err != nil {
			return fixedpoint.Quantity{}, err
		}
	}

	fees := in.Size.MulBps(e.params.MarginFeeBps)
	fees, err = fees.Add(e.params.LiquidationFeeUsd)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	fundingFee, err := FundingFee(in.Size, in.EntryFundingRate, in.CumulativeFundingRate)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	fees, err = fees.Add(fundingFee)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}

	return liquidationPriceFromFees(fees, nextSize, remaining, in.AveragePrice, in.IsLong)
}

// liquidationPriceFromFees places the liquidation price at the move that
// leaves collateral minus fees at zero: priceDelta = |collateral - fees| *
// averagePrice / size, applied against the position when collateral covers
// the fees and in its favor when it does not.
func liquidationPriceFromFees(fees, size, collateral, averagePrice fixedpoint.Quantity, isLong bool) (fixedpoint.Quantity, error) {
	if size.Sign() <= 0 {
		return fixedpoint.Quantity{}, ErrNoPosition
	}
	cmp, err := fees.Cmp(collateral)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	if cmp > 0 {
		shortfall, err := fees.Sub(collateral)
		if err != nil {
			return fixedpoint.Quantity{}, err
		}
		priceDelta, err := priceDeltaFor(shortfall, averagePrice, size)
		if err != nil {
			return fixedpoint.Quantity{}, err
		}
		if isLong {
			return averagePrice.Add(priceDelta)
		}
		return averagePrice.Sub(priceDelta)
	}

	headroom, err := collateral.Sub(fees)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	priceDelta, err := priceDeltaFor(headroom, averagePrice, size)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	if isLong {
		return averagePrice.Sub(priceDelta)
	}
	return averagePrice.Add(priceDelta)
}

func priceDeltaFor(amount, averagePrice, size fixedpoint.Quantity) (fixedpoint.Quantity, error) {
	v, err := fixedpoint.MulDiv(amount.Value(), averagePrice.Value(), size.Value())
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(v, fixedpoint.USDDecimals), nil
}
