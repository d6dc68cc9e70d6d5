package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratsim/internal/trade"
)

func logOf(returns ...float64) trade.Log {
	l := make(trade.Log, len(returns))
	for i, r := range returns {
		l[i] = mkTrade(at(i, 9), at(i, 17), r)
	}
	return l
}

func TestMaxDrawdown(t *testing.T) {
	t.Parallel()
	// the win between the losing runs resets the running sum
	l := logOf(-0.1, -0.2, 0.05, -0.05)
	assert.InDelta(t, -0.3, MaxDrawdown(l), 1e-12)

	assert.Zero(t, MaxDrawdown(logOf(0.1, 0.2)), "no losing run")
	assert.Zero(t, MaxDrawdown(nil))
	assert.InDelta(t, -0.45, MaxDrawdown(logOf(-0.1, -0.15, -0.2)), 1e-12)
}

func TestBootstrapDrawdown(t *testing.T) {
	t.Parallel()
	l := logOf(-0.1, 0.05, -0.2, 0.15, -0.05, 0.1, -0.12, 0.02)

	r, err := BootstrapDrawdown(l, 200, 42)
	require.NoError(t, err)
	assert.Equal(t, 200, r.Iterations)
	assert.LessOrEqual(t, r.P10, r.P90)
	assert.Less(t, r.P10, 0.0, "losing trades guarantee some drawdown")

	// fixed seed reproduces regardless of goroutine scheduling
	again, err := BootstrapDrawdown(l, 200, 42)
	require.NoError(t, err)
	assert.Equal(t, r, again)

	// the resampled tail can never be worse than the sum of all losses
	assert.GreaterOrEqual(t, r.P10, -0.1-0.2-0.05-0.12-1e-12)
}

func TestBootstrapDrawdownDefaults(t *testing.T) {
	t.Parallel()
	r, err := BootstrapDrawdown(logOf(-0.1, 0.1), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultBootstrapIterations, r.Iterations)

	_, err = BootstrapDrawdown(nil, 10, 1)
	assert.ErrorIs(t, err, ErrNoTrades)
}
