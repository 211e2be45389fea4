package orders

import (
	"errors"

	"xdxcore/config"
	"xdxcore/fixedpoint"
	"xdxcore/position"
	"xdxcore/rates"
	"xdxcore/router"
	"xdxcore/tokens"
)

// defaultSlippageBps is the tolerance assumed when an order does not carry
// its own; a market swap losing more than this share of its input value in
// USD terms is flagged.
const defaultSlippageBps = 500

// Options tune validation behaviour.
type Options struct {
	// SkipBalanceChecks lets orders through without a funded wallet, for
	// dry runs against production snapshots.
	SkipBalanceChecks bool
}

// Validator evaluates orders under one chain's parameters. Checks run in a
// fixed priority order so a given input always yields the same reason:
// chain disabled, pair sanity, missing amount, balance, liquidity, caps,
// execution fee, price bounds, leverage bounds, minimum size. The first
// blocking failure
// wins; advisory findings are reported only when nothing blocks.
type Validator struct {
	params      config.Params
	router      *router.Router
	engine      *position.Engine
	skipBalance bool
}

// New returns a validator over the chain parameters and derivation engines.
func New(params config.Params, rt *router.Router, eng *position.Engine, opts Options) *Validator {
	return &Validator{
		params:      params,
		router:      rt,
		engine:      eng,
		skipBalance: opts.SkipBalanceChecks,
	}
}

// ValidateSwap decides a swap order. The returned error reports a broken
// computation (precision mismatch, division by zero), never a rejected
// order.
func (v *Validator) ValidateSwap(snap tokens.Snapshot, req Request, usdgSupply fixedpoint.Quantity) (Decision, error) {
	if v.params.Disabled {
		return block(ReasonChainDisabled), nil
	}

	fromQ, err := snap.Quote(req.FromToken)
	if err != nil {
		return block(ReasonUnknownToken), nil
	}
	toQ, err := snap.Quote(req.ToToken)
	if err != nil {
		return block(ReasonUnknownToken), nil
	}
	if req.FromToken == req.ToToken {
		return block(ReasonSameToken), nil
	}

	anchor := req.AmountIn
	if !req.AnchorOnInput {
		anchor = req.AmountOut
	}
	if anchor.Sign() <= 0 {
		return block(ReasonMissingAmount), nil
	}

	wrapPair := (fromQ.IsNative && toQ.IsWrapped) || (fromQ.IsWrapped && toQ.IsNative)

	// Price the trade up front; its results feed the balance check when the
	// order is anchored on the output.
	var quote router.SwapQuote
	var liqErr *router.LiquidityError
	if !wrapPair {
		var routeErr error
		if req.AnchorOnInput {
			quote, routeErr = v.router.AmountOut(snap, req.FromToken, req.ToToken, req.AmountIn, req.TriggerRatio, usdgSupply)
		} else {
			quote, routeErr = v.router.AmountIn(snap, req.FromToken, req.ToToken, req.AmountOut, req.TriggerRatio, usdgSupply)
		}
		if routeErr != nil {
			le, ok := router.AsLiquidity(routeErr)
			if !ok {
				if errors.Is(routeErr, router.ErrMissingPrice) {
					return block(ReasonMissingPrice), nil
				}
				return Decision{}, routeErr
			}
			liqErr = le
		}
	}

	amountIn := req.AmountIn
	if !req.AnchorOnInput {
		if wrapPair {
			amountIn = req.AmountOut.Rescale(fromQ.Decimals)
		} else if liqErr == nil {
			amountIn = quote.AmountIn
		}
	}
	if !v.skipBalance && amountIn.IsPositive() {
		cmp, err := fromQ.Balance.Cmp(amountIn)
		if err != nil {
			return Decision{}, err
		}
		if cmp < 0 {
			return block(ReasonInsufficientBalance), nil
		}
	}

	var advisory Decision
	if liqErr != nil {
		switch liqErr.Kind {
		case router.LiquidityUSDGCap:
			return block(ReasonPoolCap), nil
		default:
			// The pool cannot fill this order in one piece; splitting it may
			// still work, so the caller decides.
			advisory = advise(ReasonInsufficientLiquidity)
		}
	}

	if !wrapPair && req.Type != Market {
		if d, err := v.checkExecutionFee(req); err != nil || d.Blocking {
			return d, err
		}
		if !req.TriggerRatio.IsPositive() {
			return block(ReasonInvalidTriggerPrice), nil
		}
		current, err := rates.Rate(fromQ, toQ)
		if err != nil {
			return block(ReasonMissingPrice), nil
		}
		cmp, err := current.Cmp(req.TriggerRatio)
		if err != nil {
			return Decision{}, err
		}
		// The order would fill immediately at a worse rate than asked.
		if cmp > 0 {
			return block(ReasonInvalidTriggerPrice), nil
		}
	}

	if !wrapPair && !advisory.Advisory && req.Type == Market && liqErr == nil {
		high, err := v.highSlippage(fromQ, toQ, quote, req.SlippageBps)
		if err != nil {
			return Decision{}, err
		}
		if high {
			advisory = advise(ReasonHighSlippage)
		}
	}

	return advisory, nil
}

// highSlippage reports whether the output is worth less of the input than the
// order's slippage tolerance allows.
func (v *Validator) highSlippage(fromQ, toQ *tokens.Quote, quote router.SwapQuote, toleranceBps uint64) (bool, error) {
	if !quote.AmountIn.IsPositive() || !quote.AmountOut.IsPositive() {
		return false, nil
	}
	if toleranceBps == 0 || toleranceBps >= fixedpoint.BasisPointsDivisor {
		toleranceBps = defaultSlippageBps
	}
	inUsd, err := fromQ.UsdMin(quote.AmountIn)
	if err != nil {
		return false, err
	}
	outUsd, err := toQ.UsdMin(quote.AmountOut)
	if err != nil {
		return false, err
	}
	cmp, err := outUsd.Cmp(inUsd.MulBps(fixedpoint.BasisPointsDivisor - toleranceBps))
	if err != nil {
		return false, err
	}
	return cmp < 0, nil
}

// checkExecutionFee requires pending orders to carry at least the chain's
// keeper execution fee. Market orders execute inline and owe none.
func (v *Validator) checkExecutionFee(req Request) (Decision, error) {
	if !v.params.MinExecutionFee.IsPositive() {
		return Valid, nil
	}
	cmp, err := req.ExecutionFee.Cmp(v.params.MinExecutionFee)
	if err != nil {
		return Decision{}, err
	}
	if cmp < 0 {
		return block(ReasonExecutionFeeTooLow), nil
	}
	return Valid, nil
}
