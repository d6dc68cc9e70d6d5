package order

import "errors"

var (
	// ErrNilOrder is returned when deriving from a nil entry order
	ErrNilOrder = errors.New("nil order")
	// ErrInvalidSide is returned for an unknown order side
	ErrInvalidSide = errors.New("invalid order side")
	// ErrInvalidSize is returned for a non-positive size or price
	ErrInvalidSize = errors.New("invalid order size")
	// ErrNotExecuted is returned when deriving a stop or take order from an
	// entry that has not executed
	ErrNotExecuted = errors.New("entry order not executed")
	// ErrTriggerPriceSide is returned when a stop or take level sits on the
	// wrong side of the entry bar's bid/ask
	ErrTriggerPriceSide = errors.New("trigger price on wrong side of entry")
	// ErrBadTransition is returned on an illegal state transition
	ErrBadTransition = errors.New("invalid order state transition")
)
