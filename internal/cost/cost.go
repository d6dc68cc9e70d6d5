// Package cost computes realised fill prices and slippage for a pair of
// opening and closing orders. The model is injected into the control loop so
// alternative cost models can be swapped in without touching it.
package cost

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"stratsim/internal/order"
)

var (
	// ErrInvalidFactor is returned when constructing a model with a
	// non-positive cost factor
	ErrInvalidFactor = errors.New("cost factor must be positive")
	errNoVolume      = errors.New("previous bar volume must be positive")
	errNotExecuted   = errors.New("order not executed")
	errBadFill       = errors.New("fill price not positive")
)

// Quote carries the market context at an order's execution bar: the bid/ask
// of that bar and the prior bar's traded volume.
type Quote struct {
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	PrevVolume decimal.Decimal
}

// Fills is the result of pricing an open/close order pair. Slippage is the
// summed log-return distance between reference and fill price at both legs.
type Fills struct {
	Open     decimal.Decimal
	Close    decimal.Decimal
	Slippage float64
}

// Model prices an (open order, close order) pair given the position size in
// underlying units
type Model interface {
	Fill(units decimal.Decimal, open *order.Order, openQuote Quote, closeOrder *order.Order, closeQuote Quote) (Fills, error)
}

// SpreadModel biases fills away from the touch in proportion to order size
// against the prior bar's volume, scaled by the bid/ask spread.
type SpreadModel struct {
	factor decimal.Decimal
}

// NewSpreadModel validates the cost factor and returns the model
func NewSpreadModel(factor decimal.Decimal) (*SpreadModel, error) {
	if !factor.IsPositive() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFactor, factor)
	}
	return &SpreadModel{factor: factor}, nil
}

// Fill implements Model
func (m *SpreadModel) Fill(units decimal.Decimal, open *order.Order, openQuote Quote, closeOrder *order.Order, closeQuote Quote) (Fills, error) {
	openRef, openFill, err := m.leg(units, open, openQuote)
	if err != nil {
		return Fills{}, fmt.Errorf("open leg: %w", err)
	}
	closeRef, closeFill, err := m.leg(units, closeOrder, closeQuote)
	if err != nil {
		return Fills{}, fmt.Errorf("close leg: %w", err)
	}
	slip := logDistance(openRef, openFill) + logDistance(closeRef, closeFill)
	return Fills{Open: openFill, Close: closeFill, Slippage: slip}, nil
}

// leg prices a single order. Market buys fill above the ask and market sells
// below the bid; limit-family orders deviate from the desired price instead
// of the live touch.
func (m *SpreadModel) leg(units decimal.Decimal, o *order.Order, q Quote) (ref, fill decimal.Decimal, err error) {
	if o == nil {
		return decimal.Zero, decimal.Zero, order.ErrNilOrder
	}
	if o.Status != order.Executed {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", errNotExecuted, o.Status)
	}
	if !q.PrevVolume.IsPositive() {
		return decimal.Zero, decimal.Zero, errNoVolume
	}
	deviation := m.factor.Mul(units).Div(q.PrevVolume).Mul(q.Ask.Sub(q.Bid))
	switch o.Kind {
	case order.Market:
		if o.Side == order.Buy {
			ref = q.Ask
		} else {
			ref = q.Bid
		}
	default:
		ref = o.Price
	}
	if o.Side == order.Buy {
		fill = ref.Add(deviation)
	} else {
		fill = ref.Sub(deviation)
	}
	if !fill.IsPositive() || !ref.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: ref %v fill %v", errBadFill, ref, fill)
	}
	return ref, fill, nil
}

func logDistance(ref, fill decimal.Decimal) float64 {
	return math.Abs(math.Log(fill.InexactFloat64() / ref.InexactFloat64()))
}
