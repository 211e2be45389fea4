// Package tokens defines the read-only token quote snapshot consumed by the
// pricing core. A snapshot is supplied fresh by the caller for every
// computation; nothing in this package mutates it.
package tokens

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"xdxcore/fixedpoint"
)

var (
	// ErrUnknownToken is returned when a snapshot has no entry for an address.
	ErrUnknownToken = errors.New("tokens: address not in snapshot")
	// ErrNoPrice is returned when a quote is present but carries no usable price.
	ErrNoPrice = errors.New("tokens: quote has no price")
)

// Quote is the per-token state read at one logical instant. Prices are USD
// quantities; pool figures are token-precision quantities; USDG figures use
// the USDG precision.
type Quote struct {
	Address  common.Address
	Symbol   string
	Decimals int32
	Weight   uint64

	IsStable    bool
	IsWrapped   bool
	IsNative    bool
	IsShortable bool
	IsUSDG      bool

	MinPrice fixedpoint.Quantity
	MaxPrice fixedpoint.Quantity

	Balance         fixedpoint.Quantity
	PoolAmount      fixedpoint.Quantity
	BufferAmount    fixedpoint.Quantity
	AvailableAmount fixedpoint.Quantity

	USDGAmount    fixedpoint.Quantity
	MaxUSDGAmount fixedpoint.Quantity

	FundingRate           fixedpoint.Quantity
	CumulativeFundingRate fixedpoint.Quantity

	GuaranteedUsd      fixedpoint.Quantity
	GlobalShortSize    fixedpoint.Quantity
	MaxGlobalLongSize  fixedpoint.Quantity
	MaxGlobalShortSize fixedpoint.Quantity
}

// HasPrices reports whether both quote sides are present and positive.
func (q *Quote) HasPrices() bool {
	return q != nil && q.MinPrice.IsPositive() && q.MaxPrice.IsPositive()
}

// UsdMin values amount at the conservative (minimum) price side, returning a
// USD quantity.
func (q *Quote) UsdMin(amount fixedpoint.Quantity) (fixedpoint.Quantity, error) {
	return q.usd(amount, q.MinPrice)
}

// UsdMax values amount at the maximum price side, returning a USD quantity.
func (q *Quote) UsdMax(amount fixedpoint.Quantity) (fixedpoint.Quantity, error) {
	return q.usd(amount, q.MaxPrice)
}

func (q *Quote) usd(amount, price fixedpoint.Quantity) (fixedpoint.Quantity, error) {
	if q == nil || !price.IsPositive() {
		return fixedpoint.Quantity{}, ErrNoPrice
	}
	v, err := fixedpoint.MulDiv(amount.Value(), price.Value(), fixedpoint.Expand(1, q.Decimals))
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(v, fixedpoint.USDDecimals), nil
}

// FromUsd converts a USD quantity into a token amount at the given price.
func (q *Quote) FromUsd(usd, price fixedpoint.Quantity) (fixedpoint.Quantity, error) {
	if q == nil || !price.IsPositive() {
		return fixedpoint.Quantity{}, ErrNoPrice
	}
	v, err := fixedpoint.MulDiv(usd.Value(), fixedpoint.Expand(1, q.Decimals), price.Value())
	if err != nil {
		return fixedpoint.Quantity{}, err
	}
	return fixedpoint.New(v, q.Decimals), nil
}

// MaxOut is the largest token amount the pool can pay out: the smaller of the
// reserved available amount and the pool balance above its buffer, floored at
// zero.
func (q *Quote) MaxOut() fixedpoint.Quantity {
	if q == nil {
		return fixedpoint.Quantity{}
	}
	headroom, err := q.PoolAmount.Sub(q.BufferAmount)
	if err != nil {
		return fixedpoint.Zero(q.Decimals)
	}
	out, err := q.AvailableAmount.Min(headroom)
	if err != nil {
		return fixedpoint.Zero(q.Decimals)
	}
	if out.Sign() < 0 {
		return fixedpoint.Zero(q.Decimals)
	}
	return out
}

// USDGHeadroom is how much additional USDG debt the token can absorb before
// its cap, in USDG precision. Zero when no cap is configured.
func (q *Quote) USDGHeadroom() fixedpoint.Quantity {
	if q == nil || !q.MaxUSDGAmount.IsPositive() {
		return fixedpoint.Zero(fixedpoint.USDGDecimals)
	}
	headroom, err := q.MaxUSDGAmount.Sub(q.USDGAmount)
	if err != nil || headroom.Sign() < 0 {
		return fixedpoint.Zero(fixedpoint.USDGDecimals)
	}
	return headroom
}

// MaxAvailableLong is the remaining USD capacity for new long exposure.
// A zero MaxGlobalLongSize means the cap is disabled and the result is zero.
func (q *Quote) MaxAvailableLong() fixedpoint.Quantity {
	if q == nil || !q.MaxGlobalLongSize.IsPositive() {
		return fixedpoint.Zero(fixedpoint.USDDecimals)
	}
	remaining, err := q.MaxGlobalLongSize.Sub(q.GuaranteedUsd)
	if err != nil || remaining.Sign() < 0 {
		return fixedpoint.Zero(fixedpoint.USDDecimals)
	}
	return remaining
}

// MaxAvailableShort is the remaining USD capacity for new short exposure.
func (q *Quote) MaxAvailableShort() fixedpoint.Quantity {
	if q == nil || !q.MaxGlobalShortSize.IsPositive() {
		return fixedpoint.Zero(fixedpoint.USDDecimals)
	}
	remaining, err := q.MaxGlobalShortSize.Sub(q.GlobalShortSize)
	if err != nil || remaining.Sign() < 0 {
		return fixedpoint.Zero(fixedpoint.USDDecimals)
	}
	return remaining
}

// Snapshot maps token address to quote state. It is owned by the caller and
// must be referentially consistent for the duration of one computation.
type Snapshot map[common.Address]*Quote

// Quote looks up the entry for addr.
func (s Snapshot) Quote(addr common.Address) (*Quote, error) {
	q, ok := s[addr]
	if !ok || q == nil {
		return nil, ErrUnknownToken
	}
	return q, nil
}

// MostAbundantStable returns the stable token with the largest available
// amount valued in USD, used as the default intermediate routing hop.
func (s Snapshot) MostAbundantStable() *Quote {
	var best *Quote
	var bestUsd fixedpoint.Quantity
	for _, q := range s {
		if q == nil || !q.IsStable || !q.HasPrices() {
			continue
		}
		usd, err := q.UsdMin(q.AvailableAmount)
		if err != nil {
			continue
		}
		if best == nil {
			best, bestUsd = q, usd
			continue
		}
		cmp, err := usd.Cmp(bestUsd)
		if err != nil {
			continue
		}
		// Ties break on address so map iteration order cannot leak into
		// the routing decision.
		if cmp > 0 || (cmp == 0 && q.Address.Cmp(best.Address) < 0) {
			best, bestUsd = q, usd
		}
	}
	return best
}
