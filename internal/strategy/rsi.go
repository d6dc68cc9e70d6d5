// Package strategy provides bundled signal providers. The RSI provider maps
// the relative strength index into buy/sell class probabilities so a
// backtest can run end to end without an external classifier.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/thrasher-corp/gct-ta/indicators"

	"stratsim/internal/bar"
	"stratsim/internal/signal"
)

var (
	errBadPeriod  = errors.New("rsi period must be positive")
	errBadBands   = errors.New("rsi bands must satisfy 0 < low < high < 100")
	errBadSquash  = errors.New("squash width must be positive")
	errTooFewBars = errors.New("not enough bars for rsi warmup")
)

// RSI turns the distance of the relative strength index from its
// oversold/overbought bands into class probabilities through a logistic
// squash: deep oversold readings approach a buy probability of one.
type RSI struct {
	period int
	low    float64
	high   float64
	squash float64
}

// NewRSI validates the period, band levels and squash width
func NewRSI(period int, low, high, squash float64) (*RSI, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: %d", errBadPeriod, period)
	}
	if low <= 0 || high >= 100 || low >= high {
		return nil, fmt.Errorf("%w: low %v high %v", errBadBands, low, high)
	}
	if squash <= 0 {
		return nil, fmt.Errorf("%w: %v", errBadSquash, squash)
	}
	return &RSI{period: period, low: low, high: high, squash: squash}, nil
}

// Probabilities computes the buy and sell probability series over the
// stream. The first period bars are warmup and carry no signal, so both
// series start at bar offset period.
func (s *RSI) Probabilities(bars *bar.Stream) (buy, sell *signal.Series, err error) {
	if bars.Len() <= s.period {
		return nil, nil, fmt.Errorf("%w: %d bars for period %d", errTooFewBars, bars.Len(), s.period)
	}
	closes := make([]float64, bars.Len())
	times := make([]time.Time, bars.Len())
	for i := range closes {
		b, err := bars.At(i)
		if err != nil {
			return nil, nil, err
		}
		closes[i] = b.Close.InexactFloat64()
		times[i] = b.Time
	}
	rsi := indicators.RSI(closes, s.period)

	n := bars.Len() - s.period
	buyProbs := make([]float64, n)
	sellProbs := make([]float64, n)
	for i := 0; i < n; i++ {
		v := rsi[s.period+i]
		buyProbs[i] = logistic((s.low - v) / s.squash)
		sellProbs[i] = logistic((v - s.high) / s.squash)
	}
	buy, err = signal.NewSeries(times[s.period:], buyProbs)
	if err != nil {
		return nil, nil, err
	}
	sell, err = signal.NewSeries(times[s.period:], sellProbs)
	if err != nil {
		return nil, nil, err
	}
	return buy, sell, nil
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
