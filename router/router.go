// Package router derives swap amounts and fees over a token quote snapshot.
// Amounts can be anchored on either side of the trade; fee basis points come
// from the dynamic curve in fees.go. Every function is a pure computation
// over the supplied snapshot.
package router

import (
	"github.com/ethereum/go-ethereum/common"

	"xdxcore/config"
	"xdxcore/fixedpoint"
	"xdxcore/tokens"
)

// Router prices swaps under one chain's fee parameters.
type Router struct {
	fees              config.FeeParams
	totalTokenWeights uint64
}

// New returns a router bound to the chain's fee curve.
func New(fees config.FeeParams, totalTokenWeights uint64) *Router {
	return &Router{fees: fees, totalTokenWeights: totalTokenWeights}
}

// SwapQuote is the priced result of one swap: both sides of the trade, the
// fee charged and the routing path.
type SwapQuote struct {
	AmountIn       fixedpoint.Quantity
	AmountOut      fixedpoint.Quantity
	FeeBasisPoints uint64
	Path           []common.Address
}

// identityPair reports whether the pair settles one-to-one without touching
// the pool: the same token, or a native wrap/unwrap.
func identityPair(from, to *tokens.Quote) bool {
	if from.Address == to.Address {
		return true
	}
	if from.IsNative && to.IsWrapped {
		return true
	}
	return from.IsWrapped && to.IsNative
}

// AmountOut prices a swap anchored on the input amount. With a positive
// triggerRatio the output is derived from the ratio instead of spot prices;
// the ratio must already be in canonical orientation. The quote fails with a
// LiquidityError before it would return a clipped fill.
func (r *Router) AmountOut(snap tokens.Snapshot, from, to common.Address, amountIn, triggerRatio, usdgSupply fixedpoint.Quantity) (SwapQuote, error) {
	fromQ, err := snap.Quote(from)
	if err != nil {
		return SwapQuote{}, err
	}
	toQ, err := snap.Quote(to)
	if err != nil {
		return SwapQuote{}, err
	}

	if amountIn.Sign() <= 0 {
		return SwapQuote{
			AmountIn:  fixedpoint.Zero(fromQ.Decimals),
			AmountOut: fixedpoint.Zero(toQ.Decimals),
			Path:      []common.Address{from, to},
		}, nil
	}

	if identityPair(fromQ, toQ) {
		return SwapQuote{
			AmountIn:  amountIn,
			AmountOut: amountIn.Rescale(toQ.Decimals),
			Path:      []common.Address{from, to},
		}, nil
	}
	if !fromQ.HasPrices() || !toQ.HasPrices() {
		return SwapQuote{}, ErrMissingPrice
	}

	// The canonical ratio is output units per input unit at the rate scale.
	var raw fixedpoint.Quantity
	if triggerRatio.IsPositive() {
		raw, err = fixedpoint.MulDivQuantity(amountIn, triggerRatio, fixedpoint.New(fixedpoint.Precision, fixedpoint.USDDecimals))
	} else {
		raw, err = fixedpoint.MulDivQuantity(amountIn, fromQ.MinPrice, toQ.MaxPrice)
	}
	if err != nil {
		return SwapQuote{}, err
	}
	gross := raw.Rescale(toQ.Decimals)

	usdgDelta, err := r.usdgValue(fromQ, amountIn, fromQ.MinPrice)
	if err != nil {
		return SwapQuote{}, err
	}
	feeBps := r.swapFeeBasisPoints(fromQ, toQ, usdgDelta, usdgSupply)
	amountOut := gross.MulBps(fixedpoint.BasisPointsDivisor - feeBps)

	if err := r.checkLiquidity(fromQ, toQ, amountOut, usdgDelta); err != nil {
		return SwapQuote{}, err
	}
	return SwapQuote{
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		FeeBasisPoints: feeBps,
		Path:           []common.Address{from, to},
	}, nil
}

// AmountIn prices a swap anchored on the output amount. The fee curve depends
// on the input-side USDG delta, which itself depends on the solved input, so
// the fee is iterated to a fixed point against the forward schedule.
func (r *Router) AmountIn(snap tokens.Snapshot, from, to common.Address, amountOut, triggerRatio, usdgSupply fixedpoint.Quantity) (SwapQuote, error) {
	fromQ, err := snap.Quote(from)
	if err != nil {
		return SwapQuote{}, err
	}
	toQ, err := snap.Quote(to)
	if err != nil {
		return SwapQuote{}, err
	}

	if amountOut.Sign() <= 0 {
		return SwapQuote{
			AmountIn:  fixedpoint.Zero(fromQ.Decimals),
			AmountOut: fixedpoint.Zero(toQ.Decimals),
			Path:      []common.Address{from, to},
		}, nil
	}

	if identityPair(fromQ, toQ) {
		return SwapQuote{
			AmountIn:  amountOut.Rescale(fromQ.Decimals),
			AmountOut: amountOut,
			Path:      []common.Address{from, to},
		}, nil
	}
	if !fromQ.HasPrices() || !toQ.HasPrices() {
		return SwapQuote{}, ErrMissingPrice
	}

	var raw fixedpoint.Quantity
	if triggerRatio.IsPositive() {
		raw, err = fixedpoint.MulDivQuantity(amountOut, fixedpoint.New(fixedpoint.Precision, fixedpoint.USDDecimals), triggerRatio)
	} else {
		raw, err = fixedpoint.MulDivQuantity(amountOut, toQ.MaxPrice, fromQ.MinPrice)
	}
	if err != nil {
		return SwapQuote{}, err
	}
	net := raw.Rescale(fromQ.Decimals)

	// Seed the fee from the output side, then re-derive it from the solved
	// input until it stops moving.
	usdgDelta, err := r.usdgValue(toQ, amountOut, toQ.MaxPrice)
	if err != nil {
		return SwapQuote{}, err
	}
	feeBps := r.swapFeeBasisPoints(fromQ, toQ, usdgDelta, usdgSupply)

	var amountIn fixedpoint.Quantity
	for i := 0; i < 4; i++ {
		if feeBps >= fixedpoint.BasisPointsDivisor {
			return SwapQuote{}, fixedpoint.ErrDivisionByZero
		}
		amountIn, err = fixedpoint.MulDivQuantity(net,
			fixedpoint.FromInt64(fixedpoint.BasisPointsDivisor, 0),
			fixedpoint.FromInt64(int64(fixedpoint.BasisPointsDivisor-feeBps), 0))
		if err != nil {
			return SwapQuote{}, err
		}
		usdgDelta, err = r.usdgValue(fromQ, amountIn, fromQ.MinPrice)
		if err != nil {
			return SwapQuote{}, err
		}
		next := r.swapFeeBasisPoints(fromQ, toQ, usdgDelta, usdgSupply)
		if next == feeBps {
			break
		}
		feeBps = next
	}

	if err := r.checkLiquidity(fromQ, toQ, amountOut, usdgDelta); err != nil {
		return SwapQuote{}, err
	}
	return SwapQuote{
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		FeeBasisPoints: feeBps,
		Path:           []common.Address{from, to},
	}, nil
}

// usdgValue converts a token amount at price into USDG precision.
func (r *Router) usdgValue(q *tokens.Quote, amount, price fixedpoint.Quantity) (fixedpoint.Quantity, error) {
	usd, err := fixedpoint.MulDiv(amount.Value(), price.Value(), fixedpoint.Precision)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(fixedpoint.AdjustForDecimals(usd, q.Decimals, fixedpoint.USDGDecimals), fixedpoint.USDGDecimals), nil
}

// checkLiquidity enforces the pool constraints on a priced swap: available
// amount and buffer on the output token, USDG cap on the input token.
func (r *Router) checkLiquidity(fromQ, toQ *tokens.Quote, amountOut, usdgDelta fixedpoint.Quantity) error {
	if toQ.AvailableAmount.IsPositive() {
		cmp, err := amountOut.Cmp(toQ.AvailableAmount)
		if err != nil {
			return err
		}
		if cmp > 0 {
			return &LiquidityError{
				Kind: LiquidityAvailable, Token: toQ.Address, Symbol: toQ.Symbol,
				Requested: amountOut, Limit: toQ.AvailableAmount,
			}
		}
	}
	if toQ.PoolAmount.IsPositive() {
		headroom, err := toQ.PoolAmount.Sub(toQ.BufferAmount)
		if err != nil {
			return err
		}
		if headroom.Sign() < 0 {
			headroom = fixedpoint.Zero(toQ.Decimals)
		}
		cmp, err := amountOut.Cmp(headroom)
		if err != nil {
			return err
		}
		if cmp > 0 {
			return &LiquidityError{
				Kind: LiquidityBuffer, Token: toQ.Address, Symbol: toQ.Symbol,
				Requested: amountOut, Limit: headroom,
			}
		}
	}
	if fromQ.MaxUSDGAmount.IsPositive() {
		headroom := fromQ.USDGHeadroom()
		cmp, err := usdgDelta.Cmp(headroom)
		if err != nil {
			return err
		}
		if cmp > 0 {
			return &LiquidityError{
				Kind: LiquidityUSDGCap, Token: fromQ.Address, Symbol: fromQ.Symbol,
				Requested: usdgDelta, Limit: headroom,
			}
		}
	}
	return nil
}

// EntryPath resolves the swap path for opening a position funded by the from
// token. Longs collateralize with the index token; shorts collateralize with
// a stable, defaulting to the most liquid one in the snapshot.
func (r *Router) EntryPath(snap tokens.Snapshot, from, index common.Address, isLong bool) []common.Address {
	if isLong {
		if from == index {
			return []common.Address{from}
		}
		return []common.Address{from, index}
	}
	if fromQ, err := snap.Quote(from); err == nil && fromQ.IsStable {
		return []common.Address{from}
	}
	if stable := snap.MostAbundantStable(); stable != nil {
		return []common.Address{from, stable.Address}
	}
	return []common.Address{from}
}

// MaxAmountIn is the largest input amount of q the USDG cap leaves room for,
// in token precision. Zero when no cap is configured.
func (r *Router) MaxAmountIn(q *tokens.Quote) (fixedpoint.Quantity, error) {
	headroom := q.USDGHeadroom()
	usd := fixedpoint.New(
		fixedpoint.AdjustForDecimals(headroom.Value(), fixedpoint.USDGDecimals, fixedpoint.USDDecimals),
		fixedpoint.USDDecimals)
	return q.FromUsd(usd, q.MinPrice)
}

// MaxAmountOut is the largest output amount the pool can pay in q.
func (r *Router) MaxAmountOut(q *tokens.Quote) fixedpoint.Quantity {
	return q.MaxOut()
}
