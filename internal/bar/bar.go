// Package bar provides the immutable OHLCV+bid/ask price bar and an
// offset-based forward cursor over an ordered series of bars.
package bar

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidBar is returned when a bar's fields do not form a valid
	// high/low envelope or carry a negative volume
	ErrInvalidBar   = errors.New("invalid bar")
	errCrossedQuote = errors.New("ask is below bid")
)

// Bar is a single time-stepped price record. Bars are value types and are
// never mutated after construction.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
	Bid    decimal.Decimal
	Ask    decimal.Decimal
}

// New validates and returns a bar. The high must sit at or above the open,
// close and low, the low at or below the open and close, and volume must not
// be negative.
func New(t time.Time, open, high, low, closePrice, volume, bid, ask decimal.Decimal) (Bar, error) {
	if high.LessThan(open) || high.LessThan(closePrice) || high.LessThan(low) {
		return Bar{}, fmt.Errorf("%w: high %v below open/close/low", ErrInvalidBar, high)
	}
	if low.GreaterThan(open) || low.GreaterThan(closePrice) {
		return Bar{}, fmt.Errorf("%w: low %v above open/close", ErrInvalidBar, low)
	}
	if volume.IsNegative() {
		return Bar{}, fmt.Errorf("%w: negative volume %v", ErrInvalidBar, volume)
	}
	if ask.LessThan(bid) {
		return Bar{}, fmt.Errorf("%w: %v < %v", errCrossedQuote, ask, bid)
	}
	return Bar{
		Time:   t,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
		Bid:    bid,
		Ask:    ask,
	}, nil
}

// BodyTop returns the upper edge of the candle body
func (b Bar) BodyTop() decimal.Decimal {
	if b.Open.GreaterThan(b.Close) {
		return b.Open
	}
	return b.Close
}

// BodyBottom returns the lower edge of the candle body
func (b Bar) BodyBottom() decimal.Decimal {
	if b.Open.LessThan(b.Close) {
		return b.Open
	}
	return b.Close
}

// Spread returns the ask minus the bid
func (b Bar) Spread() decimal.Decimal {
	return b.Ask.Sub(b.Bid)
}

// Day truncates a timestamp to its UTC calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
