package position

import (
	"math/big"

	"xdxcore/fixedpoint"
)

// DeltaResult reports the unrealized profit or loss of a position at a mark
// price. Delta is the reported figure after the minimum-profit rule;
// PendingDelta is the raw figure before it. When HasProfit is true but Delta
// is zero, the profit exists and is being withheld by the minimum-profit
// window; callers must keep that state distinguishable from "no position".
type DeltaResult struct {
	Delta                     fixedpoint.Quantity
	PendingDelta              fixedpoint.Quantity
	HasProfit                 bool
	DeltaPercentageBps        fixedpoint.Quantity
	PendingDeltaPercentageBps fixedpoint.Quantity
}

// Delta computes the unrealized PnL of the position at markPrice. By
// convention a mark price exactly at the average price carries no profit.
// now is the caller's clock in unix seconds; it gates the minimum-profit
// window against LastIncreasedTime.
func (e *Engine) Delta(markPrice fixedpoint.Quantity, pos Position, now int64) (DeltaResult, error) {
	if pos.Size.IsZero() {
		return DeltaResult{}, ErrNoPosition
	}
	if !pos.AveragePrice.IsPositive() || !markPrice.IsPositive() {
		return DeltaResult{}, ErrNoPosition
	}

	diff, err := markPrice.Sub(pos.AveragePrice)
	if err != nil {
		return DeltaResult{}, err
	}
	priceDelta := diff.Abs()

	v, err := fixedpoint.MulDiv(pos.Size.Value(), priceDelta.Value(), pos.AveragePrice.Value())
	if err != nil {
		return DeltaResult{}, err
	}
	delta := fixedpoint.New(v, fixedpoint.USDDecimals)
	pending := delta

	var hasProfit bool
	if pos.IsLong {
		hasProfit = diff.Sign() > 0
	} else {
		hasProfit = diff.Sign() < 0
	}

	// Fresh profits below the minimum-profit threshold report as zero until
	// the window expires; the pending figure stays visible so the caller can
	// surface the forfeiture.
	if hasProfit && !e.minProfitExpired(pos.LastIncreasedTime, now) {
		scaled := new(big.Int).Mul(delta.Value(), big.NewInt(fixedpoint.BasisPointsDivisor))
		threshold := new(big.Int).Mul(pos.Size.Value(), new(big.Int).SetUint64(e.params.MinProfitBps))
		if scaled.Cmp(threshold) <= 0 {
			delta = fixedpoint.Zero(fixedpoint.USDDecimals)
		}
	}

	result := DeltaResult{Delta: delta, PendingDelta: pending, HasProfit: hasProfit}

	if pos.Collateral.IsPositive() {
		pct, err := fixedpoint.MulDiv(delta.Value(), big.NewInt(fixedpoint.BasisPointsDivisor), pos.Collateral.Value())
		if err != nil {
			return DeltaResult{}, err
		}
		pendingPct, err := fixedpoint.MulDiv(pending.Value(), big.NewInt(fixedpoint.BasisPointsDivisor), pos.Collateral.Value())
		if err != nil {
			return DeltaResult{}, err
		}
		result.DeltaPercentageBps = fixedpoint.New(pct, fixedpoint.BpsDecimals)
		result.PendingDeltaPercentageBps = fixedpoint.New(pendingPct, fixedpoint.BpsDecimals)
	} else {
		result.DeltaPercentageBps = fixedpoint.Zero(fixedpoint.BpsDecimals)
		result.PendingDeltaPercentageBps = fixedpoint.Zero(fixedpoint.BpsDecimals)
	}
	return result, nil
}

func (e *Engine) minProfitExpired(lastIncreasedTime, now int64) bool {
	return lastIncreasedTime+e.params.MinProfitTime < now
}

// ProfitPrice is the price at which the minimum-profit rule stops withholding
// profit: the average price shifted by MinProfitBps in the profitable
// direction.
func (e *Engine) ProfitPrice(pos Position) fixedpoint.Quantity {
	if pos.IsLong {
		return pos.AveragePrice.MulBps(fixedpoint.BasisPointsDivisor + e.params.MinProfitBps)
	}
	return pos.AveragePrice.MulBps(fixedpoint.BasisPointsDivisor - e.params.MinProfitBps)
}
