package optimization

import (
	"math"
	"testing"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumOf(weights []float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return sum
}

func TestMeanVarianceOptimizer_EmptyInput(t *testing.T) {
	optimizer := NewMeanVarianceOptimizer(nil, nil, 2.5)

	weights, err := optimizer.Optimize()

	require.NoError(t, err)
	assert.Empty(t, weights)
}

func TestMeanVarianceOptimizer_TiltsTowardHigherReturn(t *testing.T) {
	// AAPL, BND ordering with the mock predictor and mock risk model values
	returns := []float64{0.20, 0.04}
	cov := [][]float64{
		{1.0, 0.2},
		{0.2, 1.0},
	}

	weights, err := NewMeanVarianceOptimizer(returns, cov, 2.5).Optimize()

	require.NoError(t, err)
	require.Len(t, weights, 2)
	assert.InDelta(t, 1.0, sumOf(weights), 1e-9)
	assert.Greater(t, weights[0], weights[1])
	assert.InDelta(t, 0.524, weights[0], 1e-3)
	assert.InDelta(t, 0.476, weights[1], 1e-3)
}

func TestMeanVarianceOptimizer_WeightsSumToOne(t *testing.T) {
	tests := []struct {
		name         string
		returns      []float64
		cov          [][]float64
		riskAversion float64
	}{
		{
			name:         "single asset",
			returns:      []float64{0.07},
			cov:          [][]float64{{0.04}},
			riskAversion: 1.0,
		},
		{
			name:    "sample covariance three assets",
			returns: []float64{0.12, 0.08, 0.03},
			cov: [][]float64{
				{0.05, 0.01, 0.01},
				{0.01, 0.05, 0.01},
				{0.01, 0.01, 0.05},
			},
			riskAversion: 2.5,
		},
		{
			name:    "correlated assets high risk aversion",
			returns: []float64{0.10, 0.06},
			cov: [][]float64{
				{0.04, 0.018},
				{0.018, 0.09},
			},
			riskAversion: 10,
		},
		{
			name:    "negative expected returns",
			returns: []float64{-0.05, 0.02, 0.01, 0.04},
			cov: [][]float64{
				{0.10, 0.02, 0.00, 0.01},
				{0.02, 0.08, 0.01, 0.00},
				{0.00, 0.01, 0.06, 0.02},
				{0.01, 0.00, 0.02, 0.07},
			},
			riskAversion: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights, err := NewMeanVarianceOptimizer(tt.returns, tt.cov, tt.riskAversion).Optimize()

			require.NoError(t, err)
			require.Len(t, weights, len(tt.returns))
			assert.InDelta(t, 1.0, sumOf(weights), 1e-9)
			for _, w := range weights {
				assert.False(t, math.IsNaN(w))
			}
		})
	}
}

func TestMeanVarianceOptimizer_SymmetricInputsGiveEqualWeights(t *testing.T) {
	returns := []float64{0.05, 0.05, 0.05}
	cov := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}

	weights, err := NewMeanVarianceOptimizer(returns, cov, 2.5).Optimize()

	require.NoError(t, err)
	for _, w := range weights {
		assert.InDelta(t, 1.0/3.0, w, 1e-12)
	}
}

func TestMeanVarianceOptimizer_SingularCovariance(t *testing.T) {
	tests := []struct {
		name string
		cov  [][]float64
	}{
		{name: "identical rows", cov: [][]float64{{1, 1}, {1, 1}}},
		{name: "zero matrix", cov: [][]float64{{0, 0}, {0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights, err := NewMeanVarianceOptimizer([]float64{0.1, 0.05}, tt.cov, 2.5).Optimize()

			require.Error(t, err)
			assert.Nil(t, weights)
			assert.ErrorIs(t, err, domain.ErrOptimization)
			assert.Contains(t, err.Error(), "singular")
		})
	}
}

func TestMeanVarianceOptimizer_DimensionMismatch(t *testing.T) {
	tests := []struct {
		name string
		cov  [][]float64
	}{
		{name: "too few rows", cov: [][]float64{{1, 0}}},
		{name: "ragged row", cov: [][]float64{{1, 0}, {0}}},
		{name: "too many columns", cov: [][]float64{{1, 0, 0}, {0, 1, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMeanVarianceOptimizer([]float64{0.1, 0.05}, tt.cov, 2.5).Optimize()

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), "dimension mismatch")
		})
	}
}

func TestMeanVarianceOptimizer_RejectsNonPositiveRiskAversion(t *testing.T) {
	for _, ra := range []float64{0, -1, math.NaN()} {
		_, err := NewMeanVarianceOptimizer([]float64{0.1}, [][]float64{{0.04}}, ra).Optimize()
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestNormalizeWeights(t *testing.T) {
	t.Run("rescales to unit sum", func(t *testing.T) {
		weights := normalizeWeights([]float64{2, 6})
		assert.InDeltaSlice(t, []float64{0.25, 0.75}, weights, 1e-12)
	})

	t.Run("zero sum falls back to equal weights", func(t *testing.T) {
		weights := normalizeWeights([]float64{1, -1, 0, 0})
		assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, weights)
	})
}
