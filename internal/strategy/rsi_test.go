package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratsim/internal/bar"
)

var t0 = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func mkStream(t *testing.T, closes ...float64) *bar.Stream {
	t.Helper()
	bars := make([]bar.Bar, len(closes))
	for i, c := range closes {
		b, err := bar.New(t0.Add(time.Duration(i)*time.Hour),
			decimal.NewFromFloat(c), decimal.NewFromFloat(c+1), decimal.NewFromFloat(c-1),
			decimal.NewFromFloat(c), decimal.NewFromInt(1000),
			decimal.NewFromFloat(c-0.1), decimal.NewFromFloat(c+0.1))
		require.NoError(t, err)
		bars[i] = b
	}
	s, err := bar.NewStream(bars)
	require.NoError(t, err)
	return s
}

func TestNewRSI(t *testing.T) {
	t.Parallel()
	_, err := NewRSI(0, 30, 70, 5)
	assert.ErrorIs(t, err, errBadPeriod)
	_, err = NewRSI(14, 70, 30, 5)
	assert.ErrorIs(t, err, errBadBands)
	_, err = NewRSI(14, 0, 70, 5)
	assert.ErrorIs(t, err, errBadBands)
	_, err = NewRSI(14, 30, 100, 5)
	assert.ErrorIs(t, err, errBadBands)
	_, err = NewRSI(14, 30, 70, 0)
	assert.ErrorIs(t, err, errBadSquash)
	_, err = NewRSI(14, 30, 70, 5)
	assert.NoError(t, err)
}

func TestProbabilitiesWarmup(t *testing.T) {
	t.Parallel()
	s, err := NewRSI(3, 30, 70, 5)
	require.NoError(t, err)
	stream := mkStream(t, 100, 101, 100, 102, 101, 103, 102, 104)

	buy, sell, err := s.Probabilities(stream)
	require.NoError(t, err)
	require.NoError(t, buy.Align(stream))
	require.NoError(t, sell.Align(stream))

	start, err := buy.Start()
	require.NoError(t, err)
	assert.Equal(t, 3, start, "warmup bars carry no signal")
	end, err := buy.End()
	require.NoError(t, err)
	assert.Equal(t, stream.Len(), end)
	start, err = sell.Start()
	require.NoError(t, err)
	assert.Equal(t, 3, start)
}

func TestProbabilitiesDirection(t *testing.T) {
	t.Parallel()
	s, err := NewRSI(3, 30, 70, 5)
	require.NoError(t, err)

	// straight rally: overbought, so sell pressure dominates at the end
	up := mkStream(t, 100, 102, 104, 106, 108, 110, 112, 114)
	buy, sell, err := s.Probabilities(up)
	require.NoError(t, err)
	require.NoError(t, buy.Align(up))
	require.NoError(t, sell.Align(up))

	last := up.Len() - 1
	pBuy, ok := buy.At(last)
	require.True(t, ok)
	pSell, ok := sell.At(last)
	require.True(t, ok)
	assert.Greater(t, pSell, pBuy)
	assert.Greater(t, pSell, 0.5, "rsi far above the high band")

	// straight slide mirrors it
	down := mkStream(t, 114, 112, 110, 108, 106, 104, 102, 100)
	buy, sell, err = s.Probabilities(down)
	require.NoError(t, err)
	require.NoError(t, buy.Align(down))
	require.NoError(t, sell.Align(down))
	pBuy, ok = buy.At(last)
	require.True(t, ok)
	pSell, ok = sell.At(last)
	require.True(t, ok)
	assert.Greater(t, pBuy, pSell)
}

func TestProbabilitiesTooFewBars(t *testing.T) {
	t.Parallel()
	s, err := NewRSI(10, 30, 70, 5)
	require.NoError(t, err)
	_, _, err = s.Probabilities(mkStream(t, 100, 101, 102))
	assert.ErrorIs(t, err, errTooFewBars)
}
