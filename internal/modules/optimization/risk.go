package optimization

import (
	"context"

	"github.com/aristath/rebalancer/internal/domain"
)

// Placeholder covariance values used by SampleCovarianceModel
const (
	DefaultSampleVariance   = 0.05
	DefaultSampleCovariance = 0.01
)

// RiskModel produces an n×n covariance matrix whose rows and columns follow assetIDs.
// Implementations must be safe for concurrent use.
type RiskModel interface {
	Calculate(ctx context.Context, assetIDs []string, md *domain.MarketDataContext) ([][]float64, error)
}

// SampleCovarianceModel returns a fixed diagonal variance and a constant off-diagonal covariance.
// It stands in for a real estimator built from price history.
type SampleCovarianceModel struct {
	variance   float64
	covariance float64
}

// NewSampleCovarianceModel creates the default placeholder risk model
func NewSampleCovarianceModel() *SampleCovarianceModel {
	return &SampleCovarianceModel{
		variance:   DefaultSampleVariance,
		covariance: DefaultSampleCovariance,
	}
}

// NewSampleCovarianceModelWithValues creates a placeholder model with custom values
func NewSampleCovarianceModelWithValues(variance, covariance float64) *SampleCovarianceModel {
	return &SampleCovarianceModel{variance: variance, covariance: covariance}
}

// Calculate implements RiskModel
func (m *SampleCovarianceModel) Calculate(ctx context.Context, assetIDs []string, _ *domain.MarketDataContext) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(assetIDs)
	cov := newSquare(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				cov[i][j] = m.variance
			} else {
				cov[i][j] = m.covariance
			}
		}
	}
	return cov, nil
}

// MockRiskModel returns the identity matrix with 0.2 covariance between the first two assets.
type MockRiskModel struct{}

// NewMockRiskModel creates a mock risk model
func NewMockRiskModel() *MockRiskModel {
	return &MockRiskModel{}
}

// Calculate implements RiskModel
func (m *MockRiskModel) Calculate(ctx context.Context, assetIDs []string, _ *domain.MarketDataContext) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(assetIDs)
	cov := newSquare(n)
	for i := 0; i < n; i++ {
		cov[i][i] = 1.0
	}
	if n > 1 {
		cov[0][1] = 0.2
		cov[1][0] = 0.2
	}
	return cov, nil
}

// StaticRiskModel serves a caller-supplied covariance matrix, re-aligned to the requested order.
type StaticRiskModel struct {
	index map[string]int
	cov   [][]float64
}

// NewStaticRiskModel creates a risk model from a matrix whose rows follow assetIDs.
func NewStaticRiskModel(assetIDs []string, cov [][]float64) (*StaticRiskModel, error) {
	if err := ValidateCovariance(cov, len(assetIDs)); err != nil {
		return nil, err
	}
	index := make(map[string]int, len(assetIDs))
	for i, id := range assetIDs {
		if _, dup := index[id]; dup {
			return nil, domain.InvalidInputf("duplicate asset %s in covariance matrix", id)
		}
		index[id] = i
	}
	return &StaticRiskModel{index: index, cov: cov}, nil
}

// Calculate implements RiskModel
func (m *StaticRiskModel) Calculate(ctx context.Context, assetIDs []string, _ *domain.MarketDataContext) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	positions := make([]int, len(assetIDs))
	for i, id := range assetIDs {
		pos, ok := m.index[id]
		if !ok {
			return nil, domain.RiskModelErrorf("no covariance data for asset %s", id)
		}
		positions[i] = pos
	}

	n := len(assetIDs)
	cov := newSquare(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cov[i][j] = m.cov[positions[i]][positions[j]]
		}
	}
	return cov, nil
}

// ValidateCovariance checks that cov is an n×n matrix
func ValidateCovariance(cov [][]float64, n int) error {
	if len(cov) != n {
		return domain.InvalidInputf("dimension mismatch: covariance matrix has %d rows, expected %d", len(cov), n)
	}
	for i, row := range cov {
		if len(row) != n {
			return domain.InvalidInputf("dimension mismatch: covariance row %d has size %d, expected %d", i, len(row), n)
		}
	}
	return nil
}

func newSquare(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}
