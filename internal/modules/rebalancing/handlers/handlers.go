// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/modules/plans"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PlanGenerator produces rebalancing plans
type PlanGenerator interface {
	GeneratePlan(
		ctx context.Context,
		portfolio *domain.Portfolio,
		target domain.TargetAllocation,
		riskProfile domain.RiskProfile,
		strategy rebalancing.Strategy,
		md *domain.MarketDataContext,
	) (*domain.RebalancingPlan, error)
}

// MarketDataBuilder assembles market data for a set of symbols
type MarketDataBuilder interface {
	Build(ctx context.Context, symbols []string) (*domain.MarketDataContext, error)
}

// PlanStore persists plans
type PlanStore interface {
	Save(ctx context.Context, plan *domain.RebalancingPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RebalancingPlan, error)
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, limit int) ([]*domain.RebalancingPlan, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next domain.PlanStatus) (*domain.RebalancingPlan, error)
}

// Defaults fill in strategy parameters a request leaves out
type Defaults struct {
	DeviationThreshold float64
	RiskAversion       float64
}

// Handler handles rebalancing HTTP requests
type Handler struct {
	service  PlanGenerator
	builder  MarketDataBuilder
	store    PlanStore
	defaults Defaults
	log      zerolog.Logger
}

// NewHandler creates a new rebalancing handler.
// builder and store may be nil: requests must then carry market data, and plans are not stored.
func NewHandler(
	service PlanGenerator,
	builder MarketDataBuilder,
	store PlanStore,
	defaults Defaults,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		builder:  builder,
		store:    store,
		defaults: defaults,
		log:      log.With().Str("handler", "rebalancing").Logger(),
	}
}

// GeneratePlanRequest is the body of POST /api/rebalancing/plans
type GeneratePlanRequest struct {
	Portfolio        domain.Portfolio              `json:"portfolio"`
	TargetAllocation map[domain.AssetClass]float64 `json:"target_allocation"`
	RiskProfile      domain.RiskProfile            `json:"risk_profile"`
	Strategy         *rebalancing.Strategy         `json:"strategy,omitempty"`
	MarketData       *domain.MarketDataContext     `json:"market_data,omitempty"`
}

// UpdateStatusRequest is the body of POST /api/rebalancing/plans/{id}/status
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// strategyFor applies the configured defaults to the requested strategy
func (h *Handler) strategyFor(requested *rebalancing.Strategy) rebalancing.Strategy {
	if requested == nil || requested.Kind == "" {
		return rebalancing.NewThresholdStrategySelection(h.defaults.DeviationThreshold)
	}
	s := *requested
	switch s.Kind {
	case rebalancing.StrategyThreshold:
		if s.Threshold == nil && s.MeanVariance == nil {
			s.Threshold = &rebalancing.ThresholdConfig{DeviationThreshold: h.defaults.DeviationThreshold}
		}
	case rebalancing.StrategyMeanVariance:
		if s.MeanVariance == nil && s.Threshold == nil {
			s.MeanVariance = &rebalancing.MVOConfig{RiskAversion: h.defaults.RiskAversion}
		} else if s.MeanVariance != nil && s.MeanVariance.RiskAversion == 0 {
			cfg := *s.MeanVariance
			cfg.RiskAversion = h.defaults.RiskAversion
			s.MeanVariance = &cfg
		}
	}
	return s
}

func holdingSymbols(p *domain.Portfolio) []string {
	symbols := make([]string, 0, len(p.Holdings))
	for _, holding := range p.Holdings {
		symbols = append(symbols, holding.AssetID)
	}
	return symbols
}

// HandleGeneratePlan handles POST /api/rebalancing/plans
func (h *Handler) HandleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req GeneratePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_input")
		return
	}

	portfolio := req.Portfolio
	if portfolio.ID == uuid.Nil {
		portfolio.ID = uuid.New()
	}
	strategy := h.strategyFor(req.Strategy)

	md := req.MarketData
	if md == nil && !portfolio.IsEmpty() {
		if h.builder == nil {
			h.writeError(w, http.StatusBadRequest, "market_data is required", "invalid_input")
			return
		}
		built, err := h.builder.Build(r.Context(), holdingSymbols(&portfolio))
		if err != nil {
			h.handleServiceError(w, err, "Failed to build market data")
			return
		}
		md = built
	}

	plan, err := h.service.GeneratePlan(
		r.Context(),
		&portfolio,
		domain.NewTargetAllocation(req.TargetAllocation),
		req.RiskProfile,
		strategy,
		md,
	)
	if err != nil {
		h.handleServiceError(w, err, "Failed to generate rebalancing plan")
		return
	}

	stored := false
	if h.store != nil {
		if err := h.store.Save(r.Context(), plan); err != nil {
			h.handleServiceError(w, err, "Failed to store rebalancing plan")
			return
		}
		stored = true
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": plan,
		"metadata": map[string]interface{}{
			"timestamp":  time.Now().Format(time.RFC3339),
			"strategy":   strategy.String(),
			"num_trades": len(plan.Trades),
			"stored":     stored,
		},
	})
}

// HandleGetPlan handles GET /api/rebalancing/plans/{id}
func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusNotImplemented, "Plan storage is not configured", "unavailable")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid plan id", "invalid_input")
		return
	}

	plan, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "Failed to get plan")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": plan,
	})
}

// HandleListPortfolioPlans handles GET /api/rebalancing/portfolios/{portfolioID}/plans
func (h *Handler) HandleListPortfolioPlans(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusNotImplemented, "Plan storage is not configured", "unavailable")
		return
	}

	portfolioID, err := uuid.Parse(chi.URLParam(r, "portfolioID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid portfolio id", "invalid_input")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", "invalid_input")
			return
		}
	}

	list, err := h.store.ListByPortfolio(r.Context(), portfolioID, limit)
	if err != nil {
		h.handleServiceError(w, err, "Failed to list plans")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": list,
		"metadata": map[string]interface{}{
			"count": len(list),
		},
	})
}

// HandleUpdateStatus handles POST /api/rebalancing/plans/{id}/status
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusNotImplemented, "Plan storage is not configured", "unavailable")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid plan id", "invalid_input")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_input")
		return
	}

	status, err := domain.ParsePlanStatus(req.Status)
	if err != nil {
		h.handleServiceError(w, err, "Invalid plan status")
		return
	}

	plan, err := h.store.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.handleServiceError(w, err, "Failed to update plan status")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": plan,
	})
}

// StatusFor maps an error to its HTTP status and kind
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, plans.ErrPlanNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, plans.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	}

	kind := domain.ErrorKind(err)
	switch kind {
	case "market_data_missing", "invalid_input":
		return http.StatusBadRequest, kind
	case "optimization":
		return http.StatusUnprocessableEntity, kind
	case "prediction", "risk_model", "external_service":
		return http.StatusBadGateway, kind
	default:
		return http.StatusInternalServerError, kind
	}
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error, msg string) {
	status, kind := StatusFor(err)
	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Str("error_kind", kind).Int("status", status).Msg(msg)

	h.writeError(w, status, err.Error(), kind)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, kind string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"kind":    kind,
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
