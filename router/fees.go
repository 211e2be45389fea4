package router

import (
	"math/big"

	"xdxcore/fixedpoint"
	"xdxcore/tokens"
)

// targetUSDG is the token's weight-implied share of the USDG supply, in USDG
// precision.
func (r *Router) targetUSDG(q *tokens.Quote, usdgSupply fixedpoint.Quantity) fixedpoint.Quantity {
	if q.Weight == 0 || r.totalTokenWeights == 0 || !usdgSupply.IsPositive() {
		return fixedpoint.Zero(fixedpoint.USDGDecimals)
	}
	v := new(big.Int).Mul(usdgSupply.Value(), new(big.Int).SetUint64(q.Weight))
	v.Quo(v, new(big.Int).SetUint64(r.totalTokenWeights))
	return fixedpoint.New(v, fixedpoint.USDGDecimals)
}

// feeBasisPoints prices one leg of a swap against the fee curve: a base fee
// plus a tax proportional to how far the trade moves the token's USDG debt
// from its weight-implied target. Trades that improve the balance earn a
// rebate against the base fee instead. usdgDelta is the USDG value of the
// trade; increment is true for the token absorbing debt and false for the
// token shedding it. The curve must reproduce the settlement contract's
// figures exactly.
func (r *Router) feeBasisPoints(q *tokens.Quote, usdgDelta fixedpoint.Quantity, baseBps, taxBps uint64, increment bool, usdgSupply fixedpoint.Quantity) uint64 {
	target := r.targetUSDG(q, usdgSupply)
	if !target.IsPositive() {
		return baseBps
	}

	initial := q.USDGAmount.Value()
	delta := usdgDelta.Value()
	next := new(big.Int)
	if increment {
		next.Add(initial, delta)
	} else {
		next.Sub(initial, delta)
		if next.Sign() < 0 {
			next.SetInt64(0)
		}
	}

	initialDiff := new(big.Int).Sub(initial, target.Value())
	initialDiff.Abs(initialDiff)
	nextDiff := new(big.Int).Sub(next, target.Value())
	nextDiff.Abs(nextDiff)

	if nextDiff.Cmp(initialDiff) < 0 {
		rebate := new(big.Int).Mul(initialDiff, new(big.Int).SetUint64(taxBps))
		rebate.Quo(rebate, target.Value())
		if rebate.Cmp(new(big.Int).SetUint64(baseBps)) > 0 {
			return 0
		}
		return baseBps - rebate.Uint64()
	}

	averageDiff := new(big.Int).Add(initialDiff, nextDiff)
	averageDiff.Quo(averageDiff, big.NewInt(2))
	if averageDiff.Cmp(target.Value()) > 0 {
		averageDiff.Set(target.Value())
	}
	tax := new(big.Int).Mul(averageDiff, new(big.Int).SetUint64(taxBps))
	tax.Quo(tax, target.Value())
	return baseBps + tax.Uint64()
}

// pairFeeBasis selects the base and tax rates for a pair; stable-to-stable
// swaps run on the cheaper stable curve.
func (r *Router) pairFeeBasis(from, to *tokens.Quote) (baseBps, taxBps uint64) {
	if from.IsStable && to.IsStable {
		return r.fees.StableSwapFeeBps, r.fees.StableTaxBps
	}
	return r.fees.SwapFeeBps, r.fees.TaxBps
}

// swapFeeBasisPoints prices both legs and charges the worse of the two.
func (r *Router) swapFeeBasisPoints(from, to *tokens.Quote, usdgDelta, usdgSupply fixedpoint.Quantity) uint64 {
	baseBps, taxBps := r.pairFeeBasis(from, to)
	feeIn := r.feeBasisPoints(from, usdgDelta, baseBps, taxBps, true, usdgSupply)
	feeOut := r.feeBasisPoints(to, usdgDelta, baseBps, taxBps, false, usdgSupply)
	fee := feeOut
	if feeIn > feeOut {
		fee = feeIn
	}
	if fee > fixedpoint.BasisPointsDivisor {
		fee = fixedpoint.BasisPointsDivisor
	}
	return fee
}
