// Package asset describes the instruments a backtest can trade.
package asset

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	errEmptySymbol       = errors.New("instrument symbol unset")
	errInvalidUnitValue  = errors.New("unit value must be positive")
	errInvalidConversion = errors.New("quote to account rate must be positive")
	errInvalidCalendar   = errors.New("trading days per year must be positive")
	// ErrInvalidPrice is returned when converting an amount at a
	// non-positive price
	ErrInvalidPrice = errors.New("price must be positive")
)

// Instrument holds the static conversion factors for one tradable asset.
// UnitValue is the quote-currency value of a one point move per unit held
// (contract multiplier). QuoteToAccount converts quote-currency profit into
// the account currency at close.
type Instrument struct {
	Symbol             string
	UnitValue          decimal.Decimal
	QuoteToAccount     decimal.Decimal
	TradingDaysPerYear int
}

// Validate checks the instrument parameters
func (i Instrument) Validate() error {
	if i.Symbol == "" {
		return errEmptySymbol
	}
	if !i.UnitValue.IsPositive() {
		return fmt.Errorf("%s: %w", i.Symbol, errInvalidUnitValue)
	}
	if !i.QuoteToAccount.IsPositive() {
		return fmt.Errorf("%s: %w", i.Symbol, errInvalidConversion)
	}
	if i.TradingDaysPerYear <= 0 {
		return fmt.Errorf("%s: %w", i.Symbol, errInvalidCalendar)
	}
	return nil
}

// Units converts an account-currency position amount into underlying units
// at the given price
func (i Instrument) Units(amount, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w: %v", i.Symbol, ErrInvalidPrice, price)
	}
	return amount.Div(price.Mul(i.UnitValue)), nil
}
