package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SplitBalance divides a total balance into n equal parts
func SplitBalance(total decimal.Decimal, n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	share := total.Div(decimal.NewFromInt(int64(n)))
	for i := range out {
		out[i] = share
	}
	return out
}

// RunSiloed executes every runner over its full bar range with its own
// pre-split balance. The per-asset loops share no state and run in
// parallel; results keep runner order.
func RunSiloed(runners []*Runner, balances []decimal.Decimal) ([]*Result, error) {
	return runSiloedRange(runners, balances, 0, -1)
}

// runSiloedRange fans the runners out over one bar index range; to < 0
// means each runner's full range
func runSiloedRange(runners []*Runner, balances []decimal.Decimal, from, to int) ([]*Result, error) {
	if len(runners) == 0 {
		return nil, errNoRunners
	}
	if len(balances) != len(runners) {
		return nil, fmt.Errorf("%w: %d vs %d", errBalanceMismatch, len(balances), len(runners))
	}
	results := make([]*Result, len(runners))
	var g errgroup.Group
	for i := range runners {
		i := i
		g.Go(func() error {
			end := to
			if end < 0 {
				end = runners[i].Bars().Len()
			}
			res, err := runners[i].RunRange(balances[i], from, end)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
