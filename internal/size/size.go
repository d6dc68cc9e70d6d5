// Package size advises the account-currency amount committed to a new
// position.
package size

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidProportion is returned for a non-positive balance proportion
	ErrInvalidProportion = errors.New("proportion must be positive")
	// ErrInvalidLeverage is returned for a non-positive leverage factor
	ErrInvalidLeverage = errors.New("leverage must be positive")
	// ErrNegativeBalance is returned when sizing from a negative balance
	ErrNegativeBalance = errors.New("balance must not be negative")
)

// Advisor sizes positions as a leveraged proportion of the account balance
type Advisor struct {
	proportion decimal.Decimal
	leverage   decimal.Decimal
}

// NewAdvisor validates the proportion and leverage and returns an advisor
func NewAdvisor(proportion, leverage decimal.Decimal) (*Advisor, error) {
	if !proportion.IsPositive() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProportion, proportion)
	}
	if !leverage.IsPositive() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLeverage, leverage)
	}
	return &Advisor{proportion: proportion, leverage: leverage}, nil
}

// Size returns balance x leverage x proportion, linear in balance
func (a *Advisor) Size(balance decimal.Decimal) (decimal.Decimal, error) {
	if balance.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNegativeBalance, balance)
	}
	return balance.Mul(a.leverage).Mul(a.proportion), nil
}
