package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmeticAverage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2.0, ArithmeticAverage([]float64{1, 2, 3}))
	assert.Zero(t, ArithmeticAverage(nil))
}

func TestStandardDeviations(t *testing.T) {
	t.Parallel()
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, PopulationStandardDeviation(vals), 1e-12)
	assert.InDelta(t, 2.138089935299395, SampleStandardDeviation(vals), 1e-12)
	assert.Zero(t, SampleStandardDeviation([]float64{5}))
	assert.Zero(t, PopulationStandardDeviation(nil))
}

func TestPercentile(t *testing.T) {
	t.Parallel()
	vals := []float64{15, 20, 35, 40, 50}
	assert.Equal(t, 20.0, Percentile(vals, 25))
	assert.Equal(t, 35.0, Percentile(vals, 50))
	assert.InDelta(t, 29.0, Percentile(vals, 40), 1e-12)
	assert.Equal(t, 15.0, Percentile(vals, 0))
	assert.Equal(t, 50.0, Percentile(vals, 100))
	assert.Zero(t, Percentile(nil, 50))
}
