// Package optimize provides the default mean-variance portfolio weight
// solver used by the rebalancing loop. It minimises portfolio variance over
// the simplex subject to a target mean daily return, degrading the target to
// the attainable maximum when necessary.
package optimize

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"stratsim/internal/statistics"
)

var (
	errNoReturns    = errors.New("empty return matrix")
	errRaggedMatrix = errors.New("return series differ in length")
	errBadInitial   = errors.New("initial weights do not match asset count")
)

const (
	defaultIterations = 500
	defaultStep       = 0.05
	targetPenalty     = 100.0
)

// MeanVariance is a projected-gradient mean-variance solver. It satisfies
// the engine's Optimizer interface; Reset restores the configured target
// return after a period in which it was degraded.
type MeanVariance struct {
	configuredTarget float64
	target           float64
	iterations       int
	step             float64
}

// NewMeanVariance returns a solver aiming for the given mean daily log
// return
func NewMeanVariance(targetDailyReturn float64) *MeanVariance {
	return &MeanVariance{
		configuredTarget: targetDailyReturn,
		target:           targetDailyReturn,
		iterations:       defaultIterations,
		step:             defaultStep,
	}
}

// Reset restores the configured target return
func (o *MeanVariance) Reset() {
	o.target = o.configuredTarget
}

// Target returns the solver's current target return
func (o *MeanVariance) Target() float64 {
	return o.target
}

// Weights solves for non-negative weights summing to one. Rows of returns
// are assets; initial seeds the search.
func (o *MeanVariance) Weights(returns [][]float64, initial []float64) ([]float64, error) {
	n := len(returns)
	if n == 0 {
		return nil, errNoReturns
	}
	if len(initial) != n {
		return nil, fmt.Errorf("%w: %d vs %d", errBadInitial, len(initial), n)
	}
	obs := len(returns[0])
	for i := range returns {
		if len(returns[i]) != obs {
			return nil, fmt.Errorf("%w: row %d has %d of %d", errRaggedMatrix, i, len(returns[i]), obs)
		}
	}

	means := make([]float64, n)
	for i := range returns {
		means[i] = statistics.ArithmeticAverage(returns[i])
	}
	// an unattainable target is lowered to the best single-asset mean
	best := means[0]
	for _, m := range means[1:] {
		if m > best {
			best = m
		}
	}
	if o.target > best {
		o.target = best
	}

	cov := covariance(returns, means, obs)
	w := projectSimplex(initial)

	for iter := 0; iter < o.iterations; iter++ {
		grad := make([]float64, n)
		// d/dw [ wᵀΣw + penalty·max(0, target − μ·w)² ]
		var meanW float64
		for i := range w {
			meanW += means[i] * w[i]
		}
		shortfall := o.target - meanW
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				grad[i] += 2 * cov[i][j] * w[j]
			}
			if shortfall > 0 {
				grad[i] -= 2 * targetPenalty * shortfall * means[i]
			}
		}
		for i := range w {
			w[i] -= o.step * grad[i]
		}
		w = projectSimplex(w)
	}
	return w, nil
}

func covariance(returns [][]float64, means []float64, obs int) [][]float64 {
	n := len(returns)
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	if obs <= 1 {
		return cov
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k := 0; k < obs; k++ {
				sum += (returns[i][k] - means[i]) * (returns[j][k] - means[j])
			}
			cov[i][j] = sum / float64(obs-1)
			cov[j][i] = cov[i][j]
		}
	}
	return cov
}

// projectSimplex maps a vector onto {w : w ≥ 0, Σw = 1} by Euclidean
// projection (sort-based algorithm)
func projectSimplex(v []float64) []float64 {
	n := len(v)
	sorted := make([]float64, n)
	copy(sorted, v)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var cumsum, theta float64
	k := 0
	for i := 0; i < n; i++ {
		cumsum += sorted[i]
		t := (cumsum - 1) / float64(i+1)
		if sorted[i]-t > 0 {
			k = i + 1
			theta = t
		}
	}
	if k == 0 {
		theta = (cumsum - 1) / float64(n)
	}
	out := make([]float64, n)
	for i := range v {
		out[i] = math.Max(0, v[i]-theta)
	}
	return out
}
