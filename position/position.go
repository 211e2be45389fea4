// Package position computes leverage, liquidation price, entry price
// blending and profit/loss for leveraged positions. Every function is a pure
// computation over the supplied inputs; positions are owned by the caller
// and never mutated here.
package position

import (
	"errors"
	"math/big"

	"xdxcore/config"
	"xdxcore/fixedpoint"
)

var (
	// ErrNoPosition marks a projection that is undefined because there is no
	// open size to project from. Callers must not conflate this with a
	// liquidation price of zero.
	ErrNoPosition = errors.New("position: no open position")
	// ErrUndercollateralized is returned when net collateral is depleted and
	// a ratio over it would be unbounded.
	ErrUndercollateralized = errors.New("position: net collateral depleted")
)

// Position is a caller-owned snapshot of one leveraged position. Size and
// collateral are USD quantities; funding rates use the funding precision.
type Position struct {
	Size                  fixedpoint.Quantity
	Collateral            fixedpoint.Quantity
	AveragePrice          fixedpoint.Quantity
	EntryFundingRate      fixedpoint.Quantity
	CumulativeFundingRate fixedpoint.Quantity
	IsLong                bool
	LastIncreasedTime     int64
}

// Engine evaluates position math under one chain's fee constants.
type Engine struct {
	params config.PositionParams
}

// NewEngine returns an engine bound to the given chain parameters.
func NewEngine(params config.PositionParams) *Engine {
	return &Engine{params: params}
}

// FundingFee is the accrued borrow fee in USD for size held from entry to
// the current cumulative funding rate.
func FundingFee(size, entryRate, cumulativeRate fixedpoint.Quantity) (fixedpoint.Quantity, error) {
	accrued, err := cumulativeRate.Sub(entryRate)
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	if accrued.Sign() <= 0 {
		return fixedpoint.Zero(fixedpoint.USDDecimals), nil
	}
	v, err := fixedpoint.MulDiv(size.Value(), accrued.Value(), big.NewInt(fixedpoint.FundingRatePrecision))
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(v, fixedpoint.USDDecimals), nil
}
