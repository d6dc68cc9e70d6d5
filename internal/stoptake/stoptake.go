// Package stoptake derives stop-loss and take-profit price levels from the
// entry bar and the strength of the entry signal.
package stoptake

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"stratsim/internal/bar"
	"stratsim/internal/order"
)

var (
	errInvalidMultiple = errors.New("stop/take multiple must be positive")
	errInvalidStrength = errors.New("signal strength must be within [0, 1]")
	errLevelBelowZero  = errors.New("derived level not positive")
)

// Advisor scales the entry bar's spread into stop and take distances. A
// stronger entry signal widens the take distance, leaving more room for the
// anticipated move.
type Advisor struct {
	stopMultiple decimal.Decimal
	takeMultiple decimal.Decimal
}

// NewAdvisor validates the multiples and returns an advisor
func NewAdvisor(stopMultiple, takeMultiple decimal.Decimal) (*Advisor, error) {
	if !stopMultiple.IsPositive() {
		return nil, fmt.Errorf("stop %w: %v", errInvalidMultiple, stopMultiple)
	}
	if !takeMultiple.IsPositive() {
		return nil, fmt.Errorf("take %w: %v", errInvalidMultiple, takeMultiple)
	}
	return &Advisor{stopMultiple: stopMultiple, takeMultiple: takeMultiple}, nil
}

// Levels returns the stop and take prices for a position entered on the
// given bar. Long positions stop below the bid and take above the ask;
// shorts are mirrored, so the derived levels always satisfy the order
// package's construction checks.
func (a *Advisor) Levels(b bar.Bar, side order.Side, strength float64) (stop, take decimal.Decimal, err error) {
	if strength < 0 || strength > 1 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", errInvalidStrength, strength)
	}
	spread := b.Spread()
	if !spread.IsPositive() {
		// quotes can touch; fall back to a minimal tick of the bid
		spread = b.Bid.Div(decimal.NewFromInt(10000))
	}
	stopDist := spread.Mul(a.stopMultiple)
	takeDist := spread.Mul(a.takeMultiple).Mul(decimal.NewFromFloat(0.5 + strength))

	switch side {
	case order.Buy:
		stop = b.Bid.Sub(stopDist)
		take = b.Ask.Add(takeDist)
	case order.Sell:
		stop = b.Ask.Add(stopDist)
		take = b.Bid.Sub(takeDist)
	default:
		return decimal.Zero, decimal.Zero, order.ErrInvalidSide
	}
	if !stop.IsPositive() || !take.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: stop %v take %v", errLevelBelowZero, stop, take)
	}
	return stop, take, nil
}
