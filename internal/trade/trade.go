// Package trade derives immutable accounting records from executed order
// pairs and keeps the per-asset trade log.
package trade

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"stratsim/internal/asset"
	"stratsim/internal/cost"
	"stratsim/internal/order"
)

var (
	// ErrNilOrder is returned when either order of the pair is missing
	ErrNilOrder = errors.New("nil order")
	// ErrNotExecuted is returned when pairing an order that has not executed
	ErrNotExecuted = errors.New("order not executed")
	// ErrSameSide is returned when both orders share a direction
	ErrSameSide = errors.New("orders must have opposite sides")
	// ErrInvalidBalance is returned when the account balance is not positive
	ErrInvalidBalance = errors.New("balance must be positive")
)

// logReturnFloor bounds the balance ratio so a leveraged loss exceeding the
// balance yields a large negative but finite log return
const logReturnFloor = 1e-9

// Trade is the immutable record of a closed position. Profit is in account
// currency; Slippage is in log-return units.
type Trade struct {
	Symbol    string
	OpenTime  time.Time
	CloseTime time.Time
	Win       bool
	Profit    decimal.Decimal
	LogReturn float64
	PctReturn float64
	Slippage  float64
}

// Log is a per-asset trade sequence in close order
type Log []Trade

// New pairs an opening order with its closing order and computes the
// realised accounting. The orders carry the full position size; use
// NewPartial when the sizes differ.
func New(inst asset.Instrument, open, closeOrder *order.Order, openQuote, closeQuote cost.Quote, balance decimal.Decimal, m cost.Model) (Trade, error) {
	if open == nil || closeOrder == nil {
		return Trade{}, ErrNilOrder
	}
	return build(inst, open, closeOrder, open.Size, openQuote, closeQuote, balance, m)
}

// NewPartial derives a partial-close trade from a buy/sell order pair whose
// sizes differ. The smaller open size is matched, the earlier-executed order
// is treated as the opener, and both orders have their remaining size
// reduced by the matched amount.
func NewPartial(inst asset.Instrument, buy, sell *order.Order, buyQuote, sellQuote cost.Quote, balance decimal.Decimal, m cost.Model) (Trade, error) {
	if buy == nil || sell == nil {
		return Trade{}, ErrNilOrder
	}
	matched := decimal.Min(buy.Size, sell.Size)

	open, closeOrder := buy, sell
	openQuote, closeQuote := buyQuote, sellQuote
	if sell.Execution.Time.Before(buy.Execution.Time) {
		open, closeOrder = sell, buy
		openQuote, closeQuote = sellQuote, buyQuote
	}
	t, err := build(inst, open, closeOrder, matched, openQuote, closeQuote, balance, m)
	if err != nil {
		return Trade{}, err
	}
	if err := buy.Reduce(matched); err != nil {
		return Trade{}, err
	}
	if err := sell.Reduce(matched); err != nil {
		return Trade{}, err
	}
	return t, nil
}

func build(inst asset.Instrument, open, closeOrder *order.Order, amount decimal.Decimal, openQuote, closeQuote cost.Quote, balance decimal.Decimal, m cost.Model) (Trade, error) {
	if open == nil || closeOrder == nil {
		return Trade{}, ErrNilOrder
	}
	if open.Status != order.Executed || closeOrder.Status != order.Executed {
		return Trade{}, fmt.Errorf("%w: open %v close %v", ErrNotExecuted, open.Status, closeOrder.Status)
	}
	if open.Side == closeOrder.Side {
		return Trade{}, fmt.Errorf("%w: both %v", ErrSameSide, open.Side)
	}
	if !balance.IsPositive() {
		return Trade{}, fmt.Errorf("%w: %v", ErrInvalidBalance, balance)
	}

	entryRef := openQuote.Ask
	direction := decimal.NewFromInt(1)
	if open.Side == order.Sell {
		entryRef = openQuote.Bid
		direction = decimal.NewFromInt(-1)
	}
	units, err := inst.Units(amount, entryRef)
	if err != nil {
		return Trade{}, err
	}
	fills, err := m.Fill(units, open, openQuote, closeOrder, closeQuote)
	if err != nil {
		return Trade{}, err
	}

	profit := units.Mul(inst.UnitValue).
		Mul(fills.Close.Sub(fills.Open)).
		Mul(direction).
		Mul(inst.QuoteToAccount)

	ratio := balance.Add(profit).Div(balance).InexactFloat64()
	if ratio < logReturnFloor {
		ratio = logReturnFloor
	}
	logReturn := math.Log(ratio)

	return Trade{
		Symbol:    inst.Symbol,
		OpenTime:  open.Execution.Time,
		CloseTime: closeOrder.Execution.Time,
		Win:       profit.IsPositive(),
		Profit:    profit,
		LogReturn: logReturn,
		PctReturn: PctFromLog(logReturn),
		Slippage:  fills.Slippage,
	}, nil
}

// PctFromLog converts a log return into a simple percentage return. It is a
// monotonic transform and maps zero to zero.
func PctFromLog(logReturn float64) float64 {
	return (math.Exp(logReturn) - 1) * 100
}
