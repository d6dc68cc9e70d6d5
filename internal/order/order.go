// Package order models simulated market and limit orders with a
// pending/executed/cancelled state machine. Stop-loss and take-profit orders
// are limit orders tagged with a trigger policy rather than subtypes.
package order

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"stratsim/internal/bar"
)

// Side is the direction of an order
type Side uint8

// Order sides
const (
	Buy Side = iota + 1
	Sell
)

// String implements fmt.Stringer
func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Kind distinguishes market from limit-family orders
type Kind uint8

// Order kinds
const (
	Market Kind = iota + 1
	Limit
)

// Trigger tags a limit order with its trigger policy
type Trigger uint8

// Trigger policies
const (
	TriggerNone Trigger = iota
	TriggerStopLoss
	TriggerTakeProfit
)

// Status is the order lifecycle state
type Status uint8

// Order states. Executed and Cancelled are mutually exclusive terminal
// states.
const (
	Pending Status = iota + 1
	Executed
	Cancelled
)

// String implements fmt.Stringer
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Executed:
		return "executed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Ref locates an order event on the bar series
type Ref struct {
	Offset int
	Time   time.Time
}

// Order is a simulated order. Size is the account-currency position amount
// still open; partial closes reduce it. Price is the desired price and is
// only set for the limit family.
type Order struct {
	ID        string
	Side      Side
	Kind      Kind
	Trigger   Trigger
	Size      decimal.Decimal
	Price     decimal.Decimal
	Placed    Ref
	Execution Ref
	Status    Status
}

func newOrder(side Side, kind Kind, size decimal.Decimal, at Ref) (*Order, error) {
	if side != Buy && side != Sell {
		return nil, ErrInvalidSide
	}
	if !size.IsPositive() {
		return nil, ErrInvalidSize
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:     id.String(),
		Side:   side,
		Kind:   kind,
		Size:   size,
		Placed: at,
		Status: Pending,
	}, nil
}

// NewMarket places a market order and executes it at its placement
// reference. Same-bar fills are assumed for market orders.
func NewMarket(side Side, size decimal.Decimal, at Ref) (*Order, error) {
	o, err := newOrder(side, Market, size, at)
	if err != nil {
		return nil, err
	}
	if err := o.Execute(at); err != nil {
		return nil, err
	}
	return o, nil
}

// NewStopLoss derives a pending stop-loss closing order from an executed
// entry. For a long entry the stop must sit below the entry bar's bid; for a
// short entry above the ask.
func NewStopLoss(entry *Order, entryBar bar.Bar, price decimal.Decimal) (*Order, error) {
	if err := validateDerived(entry, price); err != nil {
		return nil, err
	}
	switch entry.Side {
	case Buy:
		if price.GreaterThanOrEqual(entryBar.Bid) {
			return nil, fmt.Errorf("%w: stop %v not below entry bid %v", ErrTriggerPriceSide, price, entryBar.Bid)
		}
	case Sell:
		if price.LessThanOrEqual(entryBar.Ask) {
			return nil, fmt.Errorf("%w: stop %v not above entry ask %v", ErrTriggerPriceSide, price, entryBar.Ask)
		}
	}
	o, err := newOrder(entry.Side.Opposite(), Limit, entry.Size, entry.Execution)
	if err != nil {
		return nil, err
	}
	o.Trigger = TriggerStopLoss
	o.Price = price
	return o, nil
}

// NewTakeProfit derives a pending take-profit closing order from an executed
// entry. The take level sits on the profitable side: above the ask for a
// long entry, below the bid for a short.
func NewTakeProfit(entry *Order, entryBar bar.Bar, price decimal.Decimal) (*Order, error) {
	if err := validateDerived(entry, price); err != nil {
		return nil, err
	}
	switch entry.Side {
	case Buy:
		if price.LessThanOrEqual(entryBar.Ask) {
			return nil, fmt.Errorf("%w: take %v not above entry ask %v", ErrTriggerPriceSide, price, entryBar.Ask)
		}
	case Sell:
		if price.GreaterThanOrEqual(entryBar.Bid) {
			return nil, fmt.Errorf("%w: take %v not below entry bid %v", ErrTriggerPriceSide, price, entryBar.Bid)
		}
	}
	o, err := newOrder(entry.Side.Opposite(), Limit, entry.Size, entry.Execution)
	if err != nil {
		return nil, err
	}
	o.Trigger = TriggerTakeProfit
	o.Price = price
	return o, nil
}

func validateDerived(entry *Order, price decimal.Decimal) error {
	if entry == nil {
		return ErrNilOrder
	}
	if entry.Status != Executed {
		return fmt.Errorf("%w: entry is %v", ErrNotExecuted, entry.Status)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: %v", ErrInvalidSize, price)
	}
	return nil
}

// Execute transitions a pending order to executed and fixes its execution
// reference
func (o *Order) Execute(at Ref) error {
	if o.Status != Pending {
		return fmt.Errorf("%w: cannot execute %v order", ErrBadTransition, o.Status)
	}
	o.Status = Executed
	o.Execution = at
	return nil
}

// Cancel transitions a pending order to cancelled
func (o *Order) Cancel() error {
	if o.Status != Pending {
		return fmt.Errorf("%w: cannot cancel %v order", ErrBadTransition, o.Status)
	}
	o.Status = Cancelled
	return nil
}

// Reduce shrinks the order's open size after a partial close
func (o *Order) Reduce(amount decimal.Decimal) error {
	if amount.IsNegative() || amount.GreaterThan(o.Size) {
		return fmt.Errorf("%w: reduce %v of %v", ErrInvalidSize, amount, o.Size)
	}
	o.Size = o.Size.Sub(amount)
	return nil
}

// Triggered reports whether the bar satisfies this order's trigger
// condition. A sell-side stop (closing a long) fires when the low or body
// bottom breaches the level; a sell-side take when the high or body top
// does. Buy-side closers mirror this.
func (o *Order) Triggered(b bar.Bar) bool {
	if o.Status != Pending || o.Trigger == TriggerNone {
		return false
	}
	breachBelow := b.Low.LessThanOrEqual(o.Price) || b.BodyBottom().LessThanOrEqual(o.Price)
	breachAbove := b.High.GreaterThanOrEqual(o.Price) || b.BodyTop().GreaterThanOrEqual(o.Price)
	switch {
	case o.Side == Sell && o.Trigger == TriggerStopLoss,
		o.Side == Buy && o.Trigger == TriggerTakeProfit:
		return breachBelow
	default:
		return breachAbove
	}
}
