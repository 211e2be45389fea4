// Package orders validates proposed swap and position orders against a quote
// snapshot and the derived pricing and risk figures. Validation is a pure
// decision procedure; it never mutates the snapshot and never guesses user
// intent.
package orders

import (
	"github.com/ethereum/go-ethereum/common"

	"xdxcore/fixedpoint"
)

// Kind discriminates what the order does.
type Kind uint8

const (
	Swap Kind = iota + 1
	IncreasePosition
	DecreasePosition
)

// OrderType discriminates how the order executes.
type OrderType uint8

const (
	Market OrderType = iota + 1
	Limit
	StopMarket
)

// Request is one proposed order. Amounts are token-precision quantities; USD
// figures carry the USD precision. Exactly one of AmountIn and AmountOut is
// the anchor, per AnchorOnInput.
type Request struct {
	Kind Kind
	Type OrderType

	FromToken  common.Address
	ToToken    common.Address
	IndexToken common.Address

	AmountIn      fixedpoint.Quantity
	AmountOut     fixedpoint.Quantity
	AnchorOnInput bool

	IsLong             bool
	SizeDeltaUsd       fixedpoint.Quantity
	CollateralDeltaUsd fixedpoint.Quantity

	TriggerPrice          fixedpoint.Quantity
	TriggerRatio          fixedpoint.Quantity
	TriggerAboveThreshold bool

	// SlippageBps is the caller's accepted value loss on market swaps; zero
	// means the default tolerance.
	SlippageBps uint64

	// ExecutionFee is the native-token fee attached for the keeper, at 18
	// decimals. Pending orders must cover the chain's minimum.
	ExecutionFee fixedpoint.Quantity
}

// Reason is a stable machine-readable code naming why an order was rejected
// or flagged.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonChainDisabled         Reason = "CHAIN_DISABLED"
	ReasonSameToken             Reason = "SAME_TOKEN"
	ReasonUnknownToken          Reason = "UNKNOWN_TOKEN"
	ReasonNotShortable          Reason = "NOT_SHORTABLE"
	ReasonMissingPrice          Reason = "MISSING_PRICE"
	ReasonMissingAmount         Reason = "MISSING_AMOUNT"
	ReasonSizeExceedsPosition   Reason = "SIZE_EXCEEDS_POSITION"
	ReasonInsufficientBalance   Reason = "INSUFFICIENT_BALANCE"
	ReasonInsufficientLiquidity Reason = "INSUFFICIENT_LIQUIDITY"
	ReasonPoolCap               Reason = "POOL_CAP"
	ReasonMaxLongs              Reason = "MAX_LONGS"
	ReasonMaxShorts             Reason = "MAX_SHORTS"
	ReasonInvalidTriggerPrice   Reason = "INVALID_TRIGGER_PRICE"
	ReasonTriggerPastLiqPrice   Reason = "TRIGGER_PAST_LIQUIDATION"
	ReasonLeverageTooLow        Reason = "MIN_LEVERAGE"
	ReasonLeverageTooHigh       Reason = "MAX_LEVERAGE"
	ReasonOrderTooSmall         Reason = "MIN_ORDER_SIZE"
	ReasonExecutionFeeTooLow    Reason = "MIN_EXECUTION_FEE"
	ReasonNoPosition            Reason = "NO_POSITION"
	ReasonHighSlippage          Reason = "HIGH_SLIPPAGE"
	ReasonMinProfitForfeit      Reason = "MIN_PROFIT_FORFEIT"
)

// Decision is the outcome of validating one order. Advisory decisions carry a
// reason the caller should surface but may submit past with explicit
// acknowledgement; blocking decisions must not be submitted.
type Decision struct {
	Blocking bool
	Reason   Reason
	Advisory bool
}

// Valid is the all-clear decision.
var Valid = Decision{}

// OK reports whether the order passed with no reason at all.
func (d Decision) OK() bool { return d.Reason == ReasonNone }

func block(reason Reason) Decision {
	return Decision{Blocking: true, Reason: reason}
}

func advise(reason Reason) Decision {
	return Decision{Advisory: true, Reason: reason}
}
