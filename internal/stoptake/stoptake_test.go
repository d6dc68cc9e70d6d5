package stoptake

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratsim/internal/bar"
	"stratsim/internal/order"
)

var t0 = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func mkBar(t *testing.T, bid, ask float64) bar.Bar {
	t.Helper()
	b, err := bar.New(t0,
		decimal.NewFromFloat(bid), decimal.NewFromFloat(ask+1), decimal.NewFromFloat(bid-1),
		decimal.NewFromFloat(ask), decimal.NewFromInt(1000),
		decimal.NewFromFloat(bid), decimal.NewFromFloat(ask))
	require.NoError(t, err)
	return b
}

func TestNewAdvisor(t *testing.T) {
	t.Parallel()
	_, err := NewAdvisor(decimal.Zero, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, errInvalidMultiple)
	_, err = NewAdvisor(decimal.NewFromInt(1), decimal.NewFromInt(-2))
	assert.ErrorIs(t, err, errInvalidMultiple)
	_, err = NewAdvisor(decimal.NewFromInt(2), decimal.NewFromInt(3))
	assert.NoError(t, err)
}

func TestLevelsLong(t *testing.T) {
	t.Parallel()
	a, err := NewAdvisor(decimal.NewFromInt(2), decimal.NewFromInt(2))
	require.NoError(t, err)
	b := mkBar(t, 100, 101) // spread 1

	stop, take, err := a.Levels(b, order.Buy, 0.5)
	require.NoError(t, err)
	assert.True(t, stop.Equal(decimal.NewFromInt(98)), "bid - 2x spread, got %v", stop)
	assert.True(t, take.Equal(decimal.NewFromInt(103)), "ask + 2x spread x (0.5+0.5), got %v", take)

	// a stronger signal widens the take only
	_, wideTake, err := a.Levels(b, order.Buy, 1)
	require.NoError(t, err)
	assert.True(t, wideTake.GreaterThan(take))
}

func TestLevelsShort(t *testing.T) {
	t.Parallel()
	a, err := NewAdvisor(decimal.NewFromInt(2), decimal.NewFromInt(2))
	require.NoError(t, err)
	b := mkBar(t, 100, 101)

	stop, take, err := a.Levels(b, order.Sell, 0.5)
	require.NoError(t, err)
	assert.True(t, stop.Equal(decimal.NewFromInt(103)), "ask + 2x spread, got %v", stop)
	assert.True(t, take.Equal(decimal.NewFromInt(98)), "bid - 2x spread x (0.5+0.5), got %v", take)
}

// Levels must land on the side the order constructors demand, else the
// control loop could never attach its protective orders.
func TestLevelsSatisfyOrderConstruction(t *testing.T) {
	t.Parallel()
	a, err := NewAdvisor(decimal.NewFromFloat(1.5), decimal.NewFromInt(3))
	require.NoError(t, err)
	b := mkBar(t, 100, 100.2)

	for _, side := range []order.Side{order.Buy, order.Sell} {
		entry, err := order.NewMarket(side, decimal.NewFromInt(5000), order.Ref{Time: t0})
		require.NoError(t, err)
		stop, take, err := a.Levels(b, side, 0.7)
		require.NoError(t, err)
		_, err = order.NewStopLoss(entry, b, stop)
		assert.NoError(t, err, "side %v stop %v", side, stop)
		_, err = order.NewTakeProfit(entry, b, take)
		assert.NoError(t, err, "side %v take %v", side, take)
	}
}

func TestLevelsZeroSpreadFallback(t *testing.T) {
	t.Parallel()
	a, err := NewAdvisor(decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	b, err := bar.New(t0,
		decimal.NewFromInt(100), decimal.NewFromInt(101), decimal.NewFromInt(99),
		decimal.NewFromInt(100), decimal.NewFromInt(1000),
		decimal.NewFromInt(100), decimal.NewFromInt(100))
	require.NoError(t, err)

	stop, take, err := a.Levels(b, order.Buy, 0)
	require.NoError(t, err)
	assert.True(t, stop.LessThan(b.Bid))
	assert.True(t, take.GreaterThan(b.Ask))
}

func TestLevelsValidation(t *testing.T) {
	t.Parallel()
	a, err := NewAdvisor(decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	b := mkBar(t, 100, 101)

	_, _, err = a.Levels(b, order.Buy, -0.1)
	assert.ErrorIs(t, err, errInvalidStrength)
	_, _, err = a.Levels(b, order.Buy, 1.1)
	assert.ErrorIs(t, err, errInvalidStrength)
	_, _, err = a.Levels(b, order.Side(9), 0.5)
	assert.ErrorIs(t, err, order.ErrInvalidSide)
}
