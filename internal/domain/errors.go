package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds surfaced by plan generation. Callers classify with errors.Is.
var (
	ErrMarketDataMissing = errors.New("market data not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrOptimization      = errors.New("optimization failed")
	ErrPrediction        = errors.New("failed to predict returns")
	ErrRiskModel         = errors.New("failed to calculate risk model")
	ErrExternalService   = errors.New("external service call failed")
	ErrInternal          = errors.New("unexpected internal error")
)

// MarketDataMissingError reports a required price or classification that is absent.
type MarketDataMissingError struct {
	AssetID string
	Field   string // "price" or "asset details"
}

func (e *MarketDataMissingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s for asset: %s", ErrMarketDataMissing, e.AssetID)
	}
	return fmt.Sprintf("%s: %s for asset %s", ErrMarketDataMissing, e.Field, e.AssetID)
}

func (e *MarketDataMissingError) Unwrap() error {
	return ErrMarketDataMissing
}

// MissingPrice builds the error for an asset without a price entry
func MissingPrice(assetID string) error {
	return &MarketDataMissingError{AssetID: assetID, Field: "price"}
}

// MissingAssetDetails builds the error for an asset without classification data
func MissingAssetDetails(assetID string) error {
	return &MarketDataMissingError{AssetID: assetID, Field: "asset details"}
}

// InvalidInputf builds an ErrInvalidInput error
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// OptimizationErrorf builds an ErrOptimization error
func OptimizationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrOptimization, fmt.Sprintf(format, args...))
}

// PredictionErrorf builds an ErrPrediction error
func PredictionErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrediction, fmt.Sprintf(format, args...))
}

// RiskModelErrorf builds an ErrRiskModel error
func RiskModelErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrRiskModel, fmt.Sprintf(format, args...))
}

// InternalErrorf builds an ErrInternal error. These indicate a defect and are always fatal.
func InternalErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// ExternalServiceError marks a transport failure from a model or data source.
// The cause stays reachable through errors.Is/As.
func ExternalServiceError(cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrExternalService) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrExternalService, cause)
}

// IsClassified reports whether err already carries one of the rebalancing error kinds.
func IsClassified(err error) bool {
	for _, kind := range []error{
		ErrMarketDataMissing, ErrInvalidInput, ErrOptimization, ErrPrediction,
		ErrRiskModel, ErrExternalService, ErrInternal,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// ErrorKind returns a stable name for the kind of err, used in logs and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMarketDataMissing):
		return "market_data_missing"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrOptimization):
		return "optimization"
	case errors.Is(err, ErrExternalService):
		return "external_service"
	case errors.Is(err, ErrPrediction):
		return "prediction"
	case errors.Is(err, ErrRiskModel):
		return "risk_model"
	case errors.Is(err, ErrInternal):
		return "internal"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "unknown"
	}
}
