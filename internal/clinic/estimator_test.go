package clinic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateZeroPosition(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())

	assert.Equal(t, 0, est.Estimate(0, 15))
	assert.Equal(t, 0, est.Estimate(-3, 15))
}

func TestEstimatePositionTimesAverage(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())

	assert.Equal(t, 10, est.Estimate(1, 10))
	assert.Equal(t, 20, est.Estimate(2, 10))
	assert.Equal(t, 75, est.Estimate(5, 15))
}

func TestEstimateNeverNegative(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())

	assert.GreaterOrEqual(t, est.Estimate(3, -10), 0)
}

func TestEstimateBuffer(t *testing.T) {
	est := NewEstimator(EstimatorConfig{DefaultServiceMins: 15, RollingWindow: 20, BufferMins: 5})

	assert.Equal(t, 25, est.Estimate(2, 10))
	// next in line stays at zero regardless of buffer
	assert.Equal(t, 0, est.Estimate(0, 10))
}

func TestAverageFallsBackToDefault(t *testing.T) {
	est := NewEstimator(EstimatorConfig{DefaultServiceMins: 12, RollingWindow: 20})

	assert.Equal(t, 12, est.AverageServiceMins(nil))
	assert.Equal(t, 12, est.AverageServiceMins([]int{}))
}

func TestAverageOverHistory(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig())

	assert.Equal(t, 10, est.AverageServiceMins([]int{10, 10, 10}))
	assert.Equal(t, 15, est.AverageServiceMins([]int{10, 20}))
}

func TestAverageRollingWindowCut(t *testing.T) {
	est := NewEstimator(EstimatorConfig{DefaultServiceMins: 15, RollingWindow: 3})

	// only the newest three entries count
	assert.Equal(t, 10, est.AverageServiceMins([]int{10, 10, 10, 100, 100}))
}
