package statistics

import (
	"math"
	"sort"
)

// ArithmeticAverage divides the sum of all values by the length of values
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for x := range values {
		sum += values[x]
	}
	return sum / float64(len(values))
}

// SampleStandardDeviation measures the dispersion of a dataset relative to
// its mean, calculated as the square root of the sample variance
func SampleStandardDeviation(vals []float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	mean := ArithmeticAverage(vals)
	var combined float64
	for i := range vals {
		combined += math.Pow(vals[i]-mean, 2)
	}
	return math.Sqrt(combined / (float64(len(vals)) - 1))
}

// PopulationStandardDeviation calculates standard deviation using population
// based calculation
func PopulationStandardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := ArithmeticAverage(values)
	var combined float64
	for x := range values {
		combined += math.Pow(values[x]-avg, 2)
	}
	return math.Sqrt(combined / float64(len(values)))
}

// Percentile returns the q-th percentile (0..100) of the values using linear
// interpolation between closest ranks
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
