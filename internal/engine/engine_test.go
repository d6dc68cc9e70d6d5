package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratsim/internal/asset"
	"stratsim/internal/bar"
	"stratsim/internal/cost"
	"stratsim/internal/signal"
	"stratsim/internal/size"
	"stratsim/internal/stoptake"
)

var t0 = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func testInstrument(symbol string) asset.Instrument {
	return asset.Instrument{
		Symbol:             symbol,
		UnitValue:          decimal.NewFromInt(1),
		QuoteToAccount:     decimal.NewFromInt(1),
		TradingDaysPerYear: 252,
	}
}

func evenThresholds(v float64) Thresholds {
	return Thresholds{BuyEntry: v, BuyExit: v, SellEntry: v, SellExit: v}
}

// mkStream builds an hourly stream whose bar i quotes bid bids[i], ask
// bids[i]+1
func mkStream(t *testing.T, bids ...float64) *bar.Stream {
	t.Helper()
	bars := make([]bar.Bar, len(bids))
	for i, bid := range bids {
		b, err := bar.New(t0.Add(time.Duration(i)*time.Hour),
			decimal.NewFromFloat(bid), decimal.NewFromFloat(bid+1.5), decimal.NewFromFloat(bid-0.5),
			decimal.NewFromFloat(bid+1), decimal.NewFromInt(1000000),
			decimal.NewFromFloat(bid), decimal.NewFromFloat(bid+1))
		require.NoError(t, err)
		bars[i] = b
	}
	s, err := bar.NewStream(bars)
	require.NoError(t, err)
	return s
}

func mkSeries(t *testing.T, probs ...float64) *signal.Series {
	t.Helper()
	times := make([]time.Time, len(probs))
	for i := range probs {
		times[i] = t0.Add(time.Duration(i) * time.Hour)
	}
	s, err := signal.NewSeries(times, probs)
	require.NoError(t, err)
	return s
}

func testSettings(t *testing.T, symbol string) Settings {
	t.Helper()
	sizer, err := size.NewAdvisor(decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	costs, err := cost.NewSpreadModel(decimal.NewFromInt(1))
	require.NoError(t, err)
	return Settings{
		Instrument: testInstrument(symbol),
		Thresholds: evenThresholds(0.8),
		Sizer:      sizer,
		Costs:      costs,
	}
}

func TestRunSignalRoundTrip(t *testing.T) {
	t.Parallel()
	bars := mkStream(t, 100, 101, 105)
	buy := mkSeries(t, 0.9, 0.1, 0.1)
	sell := mkSeries(t, 0.1, 0.1, 0.9)

	r, err := New(testSettings(t, "EURUSD"), bars, buy, sell)
	require.NoError(t, err)

	start := decimal.NewFromInt(20000)
	res, err := r.Run(start)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1, "one entry, one signal exit")
	tr := res.Trades[0]
	assert.Equal(t, t0, tr.OpenTime)
	assert.Equal(t, t0.Add(2*time.Hour), tr.CloseTime)
	assert.True(t, tr.Win, "long into a rising market")
	assert.True(t, res.FinalBalance.Equal(start.Add(tr.Profit)),
		"final balance is start plus realised profit, got %v", res.FinalBalance)
}

func TestRunForcedCloseAtRangeEnd(t *testing.T) {
	t.Parallel()
	bars := mkStream(t, 100, 101, 102)
	buy := mkSeries(t, 0.9, 0.1, 0.1)
	sell := mkSeries(t, 0.1, 0.1, 0.1) // never crosses the exit cutoff

	r, err := New(testSettings(t, "EURUSD"), bars, buy, sell)
	require.NoError(t, err)

	res, err := r.Run(decimal.NewFromInt(10000))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1, "the open position is closed on the final bar")
	assert.Equal(t, t0.Add(2*time.Hour), res.Trades[0].CloseTime)
}

func TestRunShortEntry(t *testing.T) {
	t.Parallel()
	bars := mkStream(t, 100, 95, 90)
	buy := mkSeries(t, 0.1, 0.1, 0.9)
	sell := mkSeries(t, 0.9, 0.1, 0.1)

	r, err := New(testSettings(t, "EURUSD"), bars, buy, sell)
	require.NoError(t, err)

	res, err := r.Run(decimal.NewFromInt(10000))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Win, "short into a falling market")
}

func TestRunBuyWinsEntryTie(t *testing.T) {
	t.Parallel()
	bars := mkStream(t, 100, 104, 108)
	buy := mkSeries(t, 0.9, 0.1, 0.1)
	sell := mkSeries(t, 0.9, 0.1, 0.9)

	r, err := New(testSettings(t, "EURUSD"), bars, buy, sell)
	require.NoError(t, err)

	res, err := r.Run(decimal.NewFromInt(10000))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Win, "the tie opened long, not short")
}

func TestRunReverseOnClose(t *testing.T) {
	t.Parallel()
	bars := mkStream(t, 100, 105, 100, 95)
	buy := mkSeries(t, 0.9, 0.1, 0.1, 0.1)
	sell := mkSeries(t, 0.1, 0.1, 0.9, 0.1)

	cfg := testSettings(t, "EURUSD")
	cfg.ReverseOnClose = true
	r, err := New(cfg, bars, buy, sell)
	require.NoError(t, err)

	res, err := r.Run(decimal.NewFromInt(10000))
	require.NoError(t, err)
	require.Len(t, res.Trades, 2, "the exit signal opened the mirror position")
	assert.Equal(t, t0.Add(2*time.Hour), res.Trades[1].OpenTime, "reversal opens on the exit bar")
	assert.Equal(t, t0.Add(3*time.Hour), res.Trades[1].CloseTime, "and force-closes at range end")
}

func TestRunStopLossVariant(t *testing.T) {
	t.Parallel()
	bars := []bar.Bar{}
	mk := func(open, high, low, closeP, bid, ask float64, hour int) {
		b, err := bar.New(t0.Add(time.Duration(hour)*time.Hour),
			decimal.NewFromFloat(open), decimal.NewFromFloat(high), decimal.NewFromFloat(low),
			decimal.NewFromFloat(closeP), decimal.NewFromInt(1000000),
			decimal.NewFromFloat(bid), decimal.NewFromFloat(ask))
		require.NoError(t, err)
		bars = append(bars, b)
	}
	mk(100.5, 101.5, 99.5, 101, 100, 101, 0) // entry bar, spread 1
	mk(99.5, 99.8, 98.4, 98.6, 98.4, 98.6, 1) // low 98.4 breaches the stop at 99
	mk(98.5, 99, 98, 98.6, 98.4, 98.6, 2)

	stream, err := bar.NewStream(bars)
	require.NoError(t, err)
	buy := mkSeries(t, 0.9, 0.1, 0.1)
	sell := mkSeries(t, 0.1, 0.1, 0.1)

	cfg := testSettings(t, "EURUSD")
	stops, err := stoptake.NewAdvisor(decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	cfg.Stops = stops

	r, err := New(cfg, stream, buy, sell)
	require.NoError(t, err)

	res, err := r.Run(decimal.NewFromInt(10000))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1, "the stop closed the position")
	tr := res.Trades[0]
	assert.False(t, tr.Win)
	assert.Equal(t, t0.Add(time.Hour), tr.CloseTime, "closed on the breaching bar, not at range end")
	assert.True(t, res.FinalBalance.LessThan(decimal.NewFromInt(10000)))
}

func TestRunTakeProfitVariant(t *testing.T) {
	t.Parallel()
	bars := []bar.Bar{}
	mk := func(open, high, low, closeP, bid, ask float64, hour int) {
		b, err := bar.New(t0.Add(time.Duration(hour)*time.Hour),
			decimal.NewFromFloat(open), decimal.NewFromFloat(high), decimal.NewFromFloat(low),
			decimal.NewFromFloat(closeP), decimal.NewFromInt(1000000),
			decimal.NewFromFloat(bid), decimal.NewFromFloat(ask))
		require.NoError(t, err)
		bars = append(bars, b)
	}
	// entry bar spread 1; strength 1 puts the take at ask + 1.5 = 102.5
	mk(100.5, 101.5, 99.5, 101, 100, 101, 0)
	mk(102, 103.5, 101.5, 103, 102.8, 103, 1) // high 103.5 breaches 102.5
	mk(103, 104, 102.5, 103.5, 103.2, 103.4, 2)

	stream, err := bar.NewStream(bars)
	require.NoError(t, err)
	buy := mkSeries(t, 1, 0.1, 0.1)
	sell := mkSeries(t, 0.1, 0.1, 0.1)

	cfg := testSettings(t, "EURUSD")
	stops, err := stoptake.NewAdvisor(decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	cfg.Stops = stops

	r, err := New(cfg, stream, buy, sell)
	require.NoError(t, err)

	res, err := r.Run(decimal.NewFromInt(10000))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Win, "the take realised the gain")
	assert.Equal(t, t0.Add(time.Hour), res.Trades[0].CloseTime)
}

func TestRunSkipsEntryOnExhaustedBalance(t *testing.T) {
	t.Parallel()
	bars := mkStream(t, 100, 101, 102)
	buy := mkSeries(t, 0.9, 0.9, 0.9)
	sell := mkSeries(t, 0.1, 0.1, 0.1)

	r, err := New(testSettings(t, "EURUSD"), bars, buy, sell)
	require.NoError(t, err)

	res, err := r.Run(decimal.Zero)
	require.NoError(t, err)
	assert.Empty(t, res.Trades, "a non-positive balance cannot enter")
	assert.True(t, res.FinalBalance.IsZero())
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	bars := mkStream(t, 100, 101, 102)
	buy := mkSeries(t, 0.9, 0.1, 0.1)
	sell := mkSeries(t, 0.1, 0.1, 0.1)

	cfg := testSettings(t, "EURUSD")
	cfg.Thresholds.BuyEntry = 1.5
	_, err := New(cfg, bars, buy, sell)
	assert.ErrorIs(t, err, errBadThreshold)

	cfg = testSettings(t, "EURUSD")
	cfg.Sizer = nil
	_, err = New(cfg, bars, buy, sell)
	assert.ErrorIs(t, err, errNilSizer)

	_, err = New(testSettings(t, "EURUSD"), bars, nil, sell)
	assert.ErrorIs(t, err, errNilSeries)

	shifted, err := signal.NewSeries([]time.Time{t0.Add(30 * time.Minute)}, []float64{0.9})
	require.NoError(t, err)
	_, err = New(testSettings(t, "EURUSD"), bars, shifted, sell)
	assert.ErrorIs(t, err, signal.ErrMisaligned)
}

func TestRunRangeValidation(t *testing.T) {
	t.Parallel()
	bars := mkStream(t, 100, 101, 102)
	r, err := New(testSettings(t, "EURUSD"), bars, mkSeries(t, 0.1, 0.1, 0.1), mkSeries(t, 0.1, 0.1, 0.1))
	require.NoError(t, err)

	_, err = r.RunRange(decimal.NewFromInt(1000), -1, 3)
	assert.ErrorIs(t, err, errBadRange)
	_, err = r.RunRange(decimal.NewFromInt(1000), 0, 4)
	assert.ErrorIs(t, err, errBadRange)
	_, err = r.RunRange(decimal.NewFromInt(1000), 2, 2)
	assert.ErrorIs(t, err, errBadRange)
}
