package router

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"xdxcore/fixedpoint"
)

// ErrMissingPrice is returned when a leg of the swap has no usable quote.
var ErrMissingPrice = errors.New("router: quote missing price")

// LiquidityKind discriminates the pool constraint a swap ran into.
type LiquidityKind uint8

const (
	// LiquidityAvailable: the output exceeds the token's reserved available
	// amount.
	LiquidityAvailable LiquidityKind = iota + 1
	// LiquidityBuffer: the output would draw the pool below its buffer.
	LiquidityBuffer
	// LiquidityUSDGCap: the input would push the token's USDG debt past its
	// cap.
	LiquidityUSDGCap
)

func (k LiquidityKind) String() string {
	switch k {
	case LiquidityAvailable:
		return "insufficient available amount"
	case LiquidityBuffer:
		return "pool buffer breach"
	case LiquidityUSDGCap:
		return "usdg cap exceeded"
	default:
		return "unknown"
	}
}

// LiquidityError reports a pool constraint violation as a typed result. A
// clipped partial fill is never returned in its place.
type LiquidityError struct {
	Kind      LiquidityKind
	Token     common.Address
	Symbol    string
	Requested fixedpoint.Quantity
	Limit     fixedpoint.Quantity
}

func (e *LiquidityError) Error() string {
	return fmt.Sprintf("router: %s for %s: requested %s, limit %s",
		e.Kind, e.Symbol, e.Requested, e.Limit)
}

// AsLiquidity unwraps err into a LiquidityError when it is one.
func AsLiquidity(err error) (*LiquidityError, bool) {
	var le *LiquidityError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
