package fixedpoint

import "errors"

// Arithmetic failures are always fatal to the computation that raised them;
// engines surface them to the caller instead of clamping or guessing.
var (
	// ErrDivisionByZero is returned when a divisor evaluates to zero.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
	// ErrUnderflow is returned when a logically unsigned quantity (an amount
	// or a fee) would become negative.
	ErrUnderflow = errors.New("fixedpoint: negative value in unsigned context")
	// ErrOverflow is returned when a parsed value exceeds the supported
	// magnitude.
	ErrOverflow = errors.New("fixedpoint: value exceeds representable range")
	// ErrPrecisionMismatch is returned when two quantities of different
	// decimal precision are combined without an explicit rescale.
	ErrPrecisionMismatch = errors.New("fixedpoint: mismatched decimal precision")
)
