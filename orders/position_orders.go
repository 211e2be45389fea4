package orders

import (
	"errors"

	"xdxcore/fixedpoint"
	"xdxcore/position"
	"xdxcore/router"
	"xdxcore/tokens"
)

// ValidateIncrease decides an order that opens or grows a leveraged position.
// pos is the existing position being grown, or nil for a fresh one.
func (v *Validator) ValidateIncrease(snap tokens.Snapshot, req Request, pos *position.Position, usdgSupply fixedpoint.Quantity, now int64) (Decision, error) {
	if v.params.Disabled {
		return block(ReasonChainDisabled), nil
	}

	fromQ, err := snap.Quote(req.FromToken)
	if err != nil {
		return block(ReasonUnknownToken), nil
	}
	indexQ, err := snap.Quote(req.IndexToken)
	if err != nil {
		return block(ReasonUnknownToken), nil
	}
	if !indexQ.HasPrices() {
		return block(ReasonMissingPrice), nil
	}
	if !req.IsLong && !indexQ.IsShortable {
		return block(ReasonNotShortable), nil
	}

	if req.AmountIn.Sign() <= 0 || req.SizeDeltaUsd.Sign() <= 0 {
		return block(ReasonMissingAmount), nil
	}

	if !v.skipBalance {
		cmp, err := fromQ.Balance.Cmp(req.AmountIn)
		if err != nil {
			return Decision{}, err
		}
		if cmp < 0 {
			return block(ReasonInsufficientBalance), nil
		}
	}

	// Funding the position may first swap the deposit into the collateral
	// token; that leg is subject to the same pool constraints as a swap.
	var advisory Decision
	path := v.router.EntryPath(snap, req.FromToken, req.IndexToken, req.IsLong)
	if len(path) == 2 {
		_, routeErr := v.router.AmountOut(snap, path[0], path[1], req.AmountIn, fixedpoint.Quantity{}, usdgSupply)
		if routeErr != nil {
			le, ok := router.AsLiquidity(routeErr)
			if !ok {
				if errors.Is(routeErr, router.ErrMissingPrice) {
					return block(ReasonMissingPrice), nil
				}
				return Decision{}, routeErr
			}
			if le.Kind == router.LiquidityUSDGCap {
				return block(ReasonPoolCap), nil
			}
			advisory = advise(ReasonInsufficientLiquidity)
		}
	}

	if d, err := v.checkGlobalCaps(indexQ, req); err != nil || d.Blocking {
		return d, err
	}

	if req.Type != Market {
		if d, err := v.checkExecutionFee(req); err != nil || d.Blocking {
			return d, err
		}
		if d := v.checkIncreaseTrigger(indexQ, req); d.Blocking {
			return d, nil
		}
	}

	var existing position.Position
	if pos != nil {
		existing = *pos
	}
	lev, err := v.engine.Leverage(position.LeverageInput{
		Size:                  existing.Size,
		SizeDelta:             req.SizeDeltaUsd,
		IncreaseSize:          true,
		Collateral:            existing.Collateral,
		CollateralDelta:       req.CollateralDeltaUsd,
		IncreaseCollateral:    true,
		EntryFundingRate:      existing.EntryFundingRate,
		CumulativeFundingRate: existing.CumulativeFundingRate,
	})
	switch {
	case errors.Is(err, position.ErrUndercollateralized):
		return block(ReasonLeverageTooHigh), nil
	case err != nil:
		return Decision{}, err
	}
	if d := v.checkLeverageBounds(lev); d.Blocking {
		return d, nil
	}

	cmp, err := req.SizeDeltaUsd.Cmp(v.params.MinPositionUsd)
	if err != nil {
		return Decision{}, err
	}
	if cmp < 0 {
		return block(ReasonOrderTooSmall), nil
	}

	return advisory, nil
}

// ValidateDecrease decides an order that shrinks or closes a position,
// including edits to pending decrease orders (trigger price sanity against
// the projected liquidation price).
func (v *Validator) ValidateDecrease(snap tokens.Snapshot, req Request, pos *position.Position, now int64) (Decision, error) {
	if v.params.Disabled {
		return block(ReasonChainDisabled), nil
	}

	indexQ, err := snap.Quote(req.IndexToken)
	if err != nil {
		return block(ReasonUnknownToken), nil
	}
	if !indexQ.HasPrices() {
		return block(ReasonMissingPrice), nil
	}
	if pos == nil || pos.Size.Sign() <= 0 {
		return block(ReasonNoPosition), nil
	}

	if req.SizeDeltaUsd.Sign() <= 0 {
		return block(ReasonMissingAmount), nil
	}
	cmp, err := req.SizeDeltaUsd.Cmp(pos.Size)
	if err != nil {
		return Decision{}, err
	}
	if cmp > 0 {
		return block(ReasonSizeExceedsPosition), nil
	}
	fullClose := cmp == 0

	if req.Type != Market {
		if d, err := v.checkExecutionFee(req); err != nil || d.Blocking {
			return d, err
		}
		if !req.TriggerPrice.IsPositive() {
			return block(ReasonInvalidTriggerPrice), nil
		}
		if !fullClose {
			if d, err := v.checkTriggerAgainstLiquidation(req, pos); err != nil || d.Blocking {
				return d, err
			}
		}
		if d, err := v.checkDecreaseTrigger(indexQ, req, pos.IsLong); err != nil || d.Blocking {
			return d, err
		}
	}

	if !fullClose {
		lev, err := v.engine.Leverage(position.LeverageInput{
			Size:                  pos.Size,
			SizeDelta:             req.SizeDeltaUsd,
			Collateral:            pos.Collateral,
			CollateralDelta:       req.CollateralDeltaUsd,
			EntryFundingRate:      pos.EntryFundingRate,
			CumulativeFundingRate: pos.CumulativeFundingRate,
		})
		switch {
		case errors.Is(err, position.ErrUndercollateralized):
			return block(ReasonLeverageTooHigh), nil
		case err != nil:
			return Decision{}, err
		}
		// Only the upper bound applies here: shrinking a position below the
		// minimum leverage is the trader's prerogative.
		if bps := lev.Value(); !bps.IsUint64() || bps.Uint64() > v.params.Position.MaxLeverageBps {
			return block(ReasonLeverageTooHigh), nil
		}

		leftover, err := pos.Size.Sub(req.SizeDeltaUsd)
		if err != nil {
			return Decision{}, err
		}
		cmp, err := leftover.Cmp(v.params.MinPositionUsd)
		if err != nil {
			return Decision{}, err
		}
		if cmp < 0 {
			return block(ReasonOrderTooSmall), nil
		}
	}

	// Closing fresh profit inside the minimum-profit window forfeits it. The
	// rule applies at the fill price: the trigger for pending orders, the
	// conservative mark for market closes.
	evalPrice := indexQ.MinPrice
	if !pos.IsLong {
		evalPrice = indexQ.MaxPrice
	}
	if req.Type != Market {
		evalPrice = req.TriggerPrice
	}
	res, err := v.engine.Delta(evalPrice, *pos, now)
	if err == nil && res.HasProfit && res.Delta.IsZero() && res.PendingDelta.IsPositive() {
		return advise(ReasonMinProfitForfeit), nil
	}

	return Valid, nil
}

// checkGlobalCaps enforces the per-token global long and short exposure caps.
func (v *Validator) checkGlobalCaps(indexQ *tokens.Quote, req Request) (Decision, error) {
	if req.IsLong {
		if !indexQ.MaxGlobalLongSize.IsPositive() {
			return Valid, nil
		}
		cmp, err := req.SizeDeltaUsd.Cmp(indexQ.MaxAvailableLong())
		if err != nil {
			return Decision{}, err
		}
		if cmp > 0 {
			return block(ReasonMaxLongs), nil
		}
		return Valid, nil
	}
	if !indexQ.MaxGlobalShortSize.IsPositive() {
		return Valid, nil
	}
	cmp, err := req.SizeDeltaUsd.Cmp(indexQ.MaxAvailableShort())
	if err != nil {
		return Decision{}, err
	}
	if cmp > 0 {
		return block(ReasonMaxShorts), nil
	}
	return Valid, nil
}

// checkIncreaseTrigger applies the directional rule for non-market entries:
// a limit order must sit on the favourable side of the mark price and a stop
// entry on the unfavourable side.
func (v *Validator) checkIncreaseTrigger(indexQ *tokens.Quote, req Request) Decision {
	if !req.TriggerPrice.IsPositive() {
		return block(ReasonInvalidTriggerPrice)
	}
	mark := indexQ.MaxPrice
	if !req.IsLong {
		mark = indexQ.MinPrice
	}
	cmp, err := req.TriggerPrice.Cmp(mark)
	if err != nil {
		return block(ReasonInvalidTriggerPrice)
	}

	wantBelow := req.IsLong
	if req.Type == StopMarket {
		wantBelow = !wantBelow
	}
	if wantBelow && cmp > 0 {
		return block(ReasonInvalidTriggerPrice)
	}
	if !wantBelow && cmp < 0 {
		return block(ReasonInvalidTriggerPrice)
	}
	return Valid
}

// checkDecreaseTrigger verifies a pending decrease's trigger sits on the side
// of the mark price its threshold flag claims; on the wrong side the order
// would fill immediately.
func (v *Validator) checkDecreaseTrigger(indexQ *tokens.Quote, req Request, isLong bool) (Decision, error) {
	mark := indexQ.MaxPrice
	if !isLong {
		mark = indexQ.MinPrice
	}
	cmp, err := mark.Cmp(req.TriggerPrice)
	if err != nil {
		return Decision{}, err
	}
	if req.TriggerAboveThreshold && cmp > 0 {
		return block(ReasonInvalidTriggerPrice), nil
	}
	if !req.TriggerAboveThreshold && cmp < 0 {
		return block(ReasonInvalidTriggerPrice), nil
	}
	return Valid, nil
}

// checkTriggerAgainstLiquidation rejects decrease triggers the position would
// never survive to: at or past the projected liquidation price.
func (v *Validator) checkTriggerAgainstLiquidation(req Request, pos *position.Position) (Decision, error) {
	liq, err := v.engine.LiquidationPrice(position.LiquidationInput{
		Size:                  pos.Size,
		Collateral:            pos.Collateral,
		AveragePrice:          pos.AveragePrice,
		IsLong:                pos.IsLong,
		SizeDelta:             req.SizeDeltaUsd,
		CollateralDelta:       req.CollateralDeltaUsd,
		EntryFundingRate:      pos.EntryFundingRate,
		CumulativeFundingRate: pos.CumulativeFundingRate,
	})
	if err != nil {
		if errors.Is(err, position.ErrNoPosition) || errors.Is(err, position.ErrUndercollateralized) {
			return block(ReasonTriggerPastLiqPrice), nil
		}
		return Decision{}, err
	}
	cmp, err := req.TriggerPrice.Cmp(liq)
	if err != nil {
		return Decision{}, err
	}
	if pos.IsLong && cmp <= 0 {
		return block(ReasonTriggerPastLiqPrice), nil
	}
	if !pos.IsLong && cmp >= 0 {
		return block(ReasonTriggerPastLiqPrice), nil
	}
	return Valid, nil
}

func (v *Validator) checkLeverageBounds(lev fixedpoint.Quantity) Decision {
	bps := lev.Value()
	if !bps.IsUint64() {
		return block(ReasonLeverageTooHigh)
	}
	switch {
	case bps.Uint64() < v.params.Position.MinLeverageBps:
		return block(ReasonLeverageTooLow)
	case bps.Uint64() > v.params.Position.MaxLeverageBps:
		return block(ReasonLeverageTooHigh)
	default:
		return Valid
	}
}
