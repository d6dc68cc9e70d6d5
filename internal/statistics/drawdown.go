package statistics

import (
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"stratsim/internal/trade"
)

// DefaultBootstrapIterations is the reshuffle count used when the caller
// passes zero
const DefaultBootstrapIterations = 5000

// MaxDrawdown scans the trade log in order and sums consecutive losing-trade
// log returns; a winning trade breaks the run. The most negative running sum
// is the max drawdown, in log-return units.
func MaxDrawdown(l trade.Log) float64 {
	var worst, run float64
	for i := range l {
		if l[i].Win {
			run = 0
			continue
		}
		run += l[i].LogReturn
		if run < worst {
			worst = run
		}
	}
	return worst
}

// BootstrapResult is the resampled drawdown distribution summary
type BootstrapResult struct {
	Iterations int
	P10        float64
	P90        float64
}

// BootstrapDrawdown reshuffles the trade log uniformly at random and
// recomputes the max drawdown per shuffle, reporting the 10th and 90th
// percentile of the distribution. Iterations run in parallel over a private
// copy of the log each; the per-iteration seed derives from the base seed so
// results reproduce regardless of scheduling.
func BootstrapDrawdown(l trade.Log, iterations int, seed int64) (BootstrapResult, error) {
	if len(l) == 0 {
		return BootstrapResult{}, ErrNoTrades
	}
	if iterations <= 0 {
		iterations = DefaultBootstrapIterations
	}
	drawdowns := make([]float64, iterations)

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < iterations; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(i)))
			shuffled := make(trade.Log, len(l))
			copy(shuffled, l)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			drawdowns[i] = MaxDrawdown(shuffled)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BootstrapResult{}, fmt.Errorf("bootstrap: %w", err)
	}
	return BootstrapResult{
		Iterations: iterations,
		P10:        Percentile(drawdowns, 10),
		P90:        Percentile(drawdowns, 90),
	}, nil
}
