package engine

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"stratsim/internal/statistics"
)

// Portfolio runs the optimal-portfolio rebalancing loop: the bar series is
// split into contiguous segments, each segment runs the per-asset loops with
// the current balances, and the optimizer redistributes weights on the
// realised daily returns before the next segment starts.
type Portfolio struct {
	runners []*Runner
	opt     Optimizer
	periods int
	logger  *slog.Logger
}

// NewPortfolio validates that all runners share one bar axis and returns a
// rebalancing portfolio
func NewPortfolio(runners []*Runner, opt Optimizer, periods int, logger *slog.Logger) (*Portfolio, error) {
	if len(runners) == 0 {
		return nil, errNoRunners
	}
	if opt == nil {
		return nil, errNilOptimizer
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := runners[0].Bars().Len()
	for i := range runners {
		if runners[i].Bars().Len() != n {
			return nil, fmt.Errorf("%w: %s has %d bars, %s has %d",
				errUnevenStreams, runners[0].Symbol(), n, runners[i].Symbol(), runners[i].Bars().Len())
		}
	}
	if periods <= 0 || periods > n {
		return nil, fmt.Errorf("%w: %d periods over %d bars", errBadRange, periods, n)
	}
	return &Portfolio{runners: runners, opt: opt, periods: periods, logger: logger}, nil
}

// Run executes all rebalancing periods from the total starting balance. It
// emits one RebalanceEvent for the initial equal weighting plus one per
// period, so n periods produce n+1 events.
func (p *Portfolio) Run(total decimal.Decimal) (*PortfolioResult, error) {
	n := len(p.runners)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	balances := distribute(total, weights)

	segments, err := p.runners[0].Bars().Segments(p.periods)
	if err != nil {
		return nil, err
	}

	out := &PortfolioResult{PerAsset: make([]*Result, n)}
	for i := range p.runners {
		out.PerAsset[i] = &Result{Symbol: p.runners[i].Symbol(), StartBalance: balances[i]}
	}
	out.Events = append(out.Events, newEvent(p.runners[0].Bars().First().Time, weights, balances))

	for segIdx, seg := range segments {
		results, err := runSiloedRange(p.runners, balances, seg.From, seg.To)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", segIdx, err)
		}

		segStart, err := p.runners[0].Bars().At(seg.From)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", segIdx, err)
		}
		segEnd, err := p.runners[0].Bars().At(seg.To - 1)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", segIdx, err)
		}

		returns := make([][]float64, n)
		total = decimal.Zero
		for i := range results {
			daily, err := statistics.DailyReturnsBetween(results[i].Trades, segStart.Time, segEnd.Time)
			if err != nil {
				return nil, fmt.Errorf("segment %d %s: %w", segIdx, results[i].Symbol, err)
			}
			returns[i] = daily.Returns
			total = total.Add(results[i].FinalBalance)
			out.PerAsset[i].Trades = append(out.PerAsset[i].Trades, results[i].Trades...)
		}

		weights, err = p.solveWeights(returns, weights)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", segIdx, err)
		}
		balances = distribute(total, weights)
		out.Events = append(out.Events, newEvent(segEnd.Time, weights, balances))
		p.logger.Debug("rebalanced", "segment", segIdx, "total", total.String(), "weights", weights)
	}

	for i := range out.PerAsset {
		out.PerAsset[i].FinalBalance = balances[i]
	}
	return out, nil
}

// solveWeights invokes the optimizer and resets its target return so the
// next period starts from the configured target again
func (p *Portfolio) solveWeights(returns [][]float64, initial []float64) ([]float64, error) {
	weights, err := p.opt.Weights(returns, initial)
	p.opt.Reset()
	if err != nil {
		return nil, err
	}
	if len(weights) != len(initial) {
		return nil, fmt.Errorf("%w: got %d weights for %d assets", errBadWeights, len(weights), len(initial))
	}
	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: %v", errBadWeights, weights)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: weights sum to %v", errBadWeights, sum)
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights, nil
}

func distribute(total decimal.Decimal, weights []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	for i := range weights {
		out[i] = total.Mul(decimal.NewFromFloat(weights[i]))
	}
	return out
}

// newEvent snapshots the weight and balance vectors so later periods cannot
// mutate recorded history
func newEvent(t time.Time, weights []float64, balances []decimal.Decimal) RebalanceEvent {
	e := RebalanceEvent{
		Time:     t,
		Weights:  make([]float64, len(weights)),
		Balances: make([]decimal.Decimal, len(balances)),
	}
	copy(e.Weights, weights)
	copy(e.Balances, balances)
	return e
}
