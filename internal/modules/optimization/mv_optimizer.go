package optimization

import (
	"math"

	"github.com/aristath/rebalancer/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// degenerateTolerance bounds |1ᵀΣ⁻¹1| and the raw weight sum below which the solve is treated as degenerate
const degenerateTolerance = 1e-9

// PortfolioOptimizer produces target weights that sum to 1.0
type PortfolioOptimizer interface {
	Optimize() ([]float64, error)
}

// MeanVarianceOptimizer solves the unconstrained mean-variance problem under the budget constraint Σw = 1.
// No short-selling or position bounds are applied.
type MeanVarianceOptimizer struct {
	expectedReturns []float64
	covMatrix       [][]float64
	riskAversion    float64
}

// NewMeanVarianceOptimizer creates an optimizer. Inputs must follow the same asset ordering.
func NewMeanVarianceOptimizer(expectedReturns []float64, covMatrix [][]float64, riskAversion float64) *MeanVarianceOptimizer {
	return &MeanVarianceOptimizer{
		expectedReturns: expectedReturns,
		covMatrix:       covMatrix,
		riskAversion:    riskAversion,
	}
}

// Optimize returns the normalized weight vector.
//
// Mathematical formulation:
//   - term1 = Σ⁻¹μ, term2 = Σ⁻¹1
//   - A = μᵀterm2, C = 1ᵀterm2
//   - λ = (A - γC) / C, where γ is the risk aversion
//   - w = (term1 - λ·term2) / γ, then rescaled so that Σw = 1
//
// If the raw weights sum to ~0 the result falls back to equal weights.
func (o *MeanVarianceOptimizer) Optimize() ([]float64, error) {
	n := len(o.expectedReturns)
	if n == 0 {
		return []float64{}, nil
	}

	if err := ValidateCovariance(o.covMatrix, n); err != nil {
		return nil, err
	}
	if o.riskAversion <= 0 || math.IsNaN(o.riskAversion) {
		return nil, domain.InvalidInputf("risk aversion must be positive, got %v", o.riskAversion)
	}

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, o.covMatrix[i][j])
		}
	}

	var sigmaInv mat.Dense
	if err := sigmaInv.Inverse(sigma); err != nil {
		return nil, domain.OptimizationErrorf("covariance matrix is singular: %v", err)
	}

	mu := mat.NewVecDense(n, append([]float64(nil), o.expectedReturns...))
	ones := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		ones.SetVec(i, 1.0)
	}

	var term1, term2 mat.VecDense
	term1.MulVec(&sigmaInv, mu)
	term2.MulVec(&sigmaInv, ones)

	a := mat.Dot(mu, &term2)
	c := mat.Dot(ones, &term2)
	if math.Abs(c) < degenerateTolerance || math.IsNaN(c) {
		return nil, domain.OptimizationErrorf("failed to solve mean-variance equations: degenerate covariance (1ᵀΣ⁻¹1 = %v)", c)
	}

	lambda := (a - o.riskAversion*c) / c

	var raw mat.VecDense
	raw.AddScaledVec(&term1, -lambda, &term2)
	raw.ScaleVec(1/o.riskAversion, &raw)

	weights := normalizeWeights(raw.RawVector().Data)

	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, domain.OptimizationErrorf("non-finite weight at position %d", i)
		}
	}

	return weights, nil
}

// normalizeWeights rescales raw to sum to 1. A near-zero sum yields equal weights.
func normalizeWeights(raw []float64) []float64 {
	n := len(raw)
	weights := make([]float64, n)

	sum := 0.0
	for _, w := range raw {
		sum += w
	}
	if math.Abs(sum) > degenerateTolerance {
		for i, w := range raw {
			weights[i] = w / sum
		}
		return weights
	}

	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return weights
}
