package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"stratsim/internal/trade"
)

var (
	errNilSizer        = errors.New("position size advisor unset")
	errNilCostModel    = errors.New("cost model unset")
	errNilSeries       = errors.New("signal series unset")
	errBadThreshold    = errors.New("threshold must be within (0, 1]")
	errBadRange        = errors.New("invalid bar range")
	errBalanceMismatch = errors.New("balance count does not match runner count")
	errNilOptimizer    = errors.New("optimizer unset")
	errNoRunners       = errors.New("no runners configured")
	errUnevenStreams   = errors.New("runners must share one bar axis")
	errBadWeights      = errors.New("optimizer weights unusable")
)

// Thresholds are the entry/exit probability cutoffs for both signal models
type Thresholds struct {
	BuyEntry  float64
	BuyExit   float64
	SellEntry float64
	SellExit  float64
}

// Validate checks all four cutoffs sit within (0, 1]
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.BuyEntry, t.BuyExit, t.SellEntry, t.SellExit} {
		if v <= 0 || v > 1 {
			return errBadThreshold
		}
	}
	return nil
}

// Result is a completed single-asset run. FinalBalance is floored at zero;
// the trade log preserves close order.
type Result struct {
	Symbol       string
	StartBalance decimal.Decimal
	FinalBalance decimal.Decimal
	Trades       trade.Log
}

// RebalanceEvent records one portfolio weight redistribution. Weights sum to
// one, with one entry per asset in runner order.
type RebalanceEvent struct {
	Time     time.Time
	Weights  []float64
	Balances []decimal.Decimal
}

// Optimizer is the external portfolio weight solver. Weights receives the
// per-asset daily log-return matrix (rows are assets) and an initial guess.
// The solver may lower its target return when unattainable, so Reset must be
// called between rebalancing periods to restore it.
type Optimizer interface {
	Weights(returns [][]float64, initial []float64) ([]float64, error)
	Reset()
}

// PortfolioResult aggregates a full rebalancing run
type PortfolioResult struct {
	PerAsset []*Result
	Events   []RebalanceEvent
}
