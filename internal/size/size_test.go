package size

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdvisor(t *testing.T) {
	t.Parallel()
	_, err := NewAdvisor(decimal.Zero, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidProportion)
	_, err = NewAdvisor(decimal.NewFromFloat(0.5), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidLeverage)
	_, err = NewAdvisor(decimal.NewFromFloat(0.5), decimal.NewFromInt(2))
	assert.NoError(t, err)
}

func TestSize(t *testing.T) {
	t.Parallel()
	a, err := NewAdvisor(decimal.NewFromFloat(0.25), decimal.NewFromInt(4))
	require.NoError(t, err)

	got, err := a.Size(decimal.NewFromInt(10000))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(10000)), "0.25 x 4 leaves the balance unchanged, got %v", got)

	// linear in balance
	double, err := a.Size(decimal.NewFromInt(20000))
	require.NoError(t, err)
	assert.True(t, double.Equal(got.Mul(decimal.NewFromInt(2))))

	zero, err := a.Size(decimal.Zero)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = a.Size(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeBalance)
}
