package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/modules/optimization"
	"github.com/aristath/rebalancer/internal/modules/plans"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	testingpkg "github.com/aristath/rebalancer/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBuilder struct {
	md      *domain.MarketDataContext
	err     error
	symbols []string
}

func (b *stubBuilder) Build(_ context.Context, symbols []string) (*domain.MarketDataContext, error) {
	b.symbols = symbols
	return b.md, b.err
}

var testDefaults = Defaults{DeviationThreshold: 0.05, RiskAversion: 2.5}

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func newTestService() *rebalancing.Service {
	return rebalancing.NewService(
		optimization.NewMockReturnsPredictor(),
		optimization.NewMockRiskModel(),
		testLogger(),
	)
}

func newTestRouter(t *testing.T, builder MarketDataBuilder, withStore bool) (*chi.Mux, *plans.Repository) {
	t.Helper()

	var store PlanStore
	var repo *plans.Repository
	if withStore {
		repo = plans.NewRepository(testingpkg.NewTestDB(t, "plans"), testLogger())
		store = repo
	}

	handler := NewHandler(newTestService(), builder, store, testDefaults, testLogger())
	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router, repo
}

func generateBody(t *testing.T, portfolio *domain.Portfolio, md *domain.MarketDataContext, strategy *rebalancing.Strategy) []byte {
	t.Helper()

	body, err := json.Marshal(GeneratePlanRequest{
		Portfolio: *portfolio,
		TargetAllocation: map[domain.AssetClass]float64{
			domain.AssetClassEquity:      0.6,
			domain.AssetClassFixedIncome: 0.4,
		},
		RiskProfile: domain.Moderate(),
		Strategy:    strategy,
		MarketData:  md,
	})
	require.NoError(t, err)
	return body
}

func do(router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type planResponse struct {
	Data     domain.RebalancingPlan `json:"data"`
	Metadata struct {
		Strategy  string `json:"strategy"`
		NumTrades int    `json:"num_trades"`
		Stored    bool   `json:"stored"`
	} `json:"metadata"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleGeneratePlan_ThresholdWithMarketData(t *testing.T) {
	router, _ := newTestRouter(t, nil, true)
	portfolio := testingpkg.NewPortfolioFixture()

	w := do(router, http.MethodPost, "/api/rebalancing/plans",
		generateBody(t, portfolio, testingpkg.NewMarketDataFixture(), nil))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp planResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, portfolio.ID, resp.Data.PortfolioID)
	assert.Equal(t, domain.PlanStatusPending, resp.Data.Status)
	assert.Equal(t, "Rebalancing plan generated using Threshold (deviation 5.00%) strategy.", resp.Data.Summary)
	assert.Equal(t, len(resp.Data.Trades), resp.Metadata.NumTrades)
	assert.True(t, resp.Metadata.Stored)

	// 6500 total: Equity 1500 -> 3900, FixedIncome 4000 -> 2600
	require.Len(t, resp.Data.Trades, 2)
	for _, trade := range resp.Data.Trades {
		switch trade.AssetID {
		case "AAPL":
			assert.Equal(t, domain.OrderTypeBuy, trade.OrderType)
			assert.InDelta(t, 2400, trade.EstimatedValue, 1e-6)
		case "BND":
			assert.Equal(t, domain.OrderTypeSell, trade.OrderType)
			assert.InDelta(t, 1400, trade.EstimatedValue, 1e-6)
		default:
			t.Fatalf("unexpected trade for %s", trade.AssetID)
		}
	}
}

func TestHandleGeneratePlan_StoredPlanCanBeFetched(t *testing.T) {
	router, _ := newTestRouter(t, nil, true)

	w := do(router, http.MethodPost, "/api/rebalancing/plans",
		generateBody(t, testingpkg.NewPortfolioFixture(), testingpkg.NewMarketDataFixture(), nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var created planResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	w = do(router, http.MethodGet, "/api/rebalancing/plans/"+created.Data.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched planResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&fetched))
	assert.Equal(t, created.Data.ID, fetched.Data.ID)
	assert.Equal(t, created.Data.Trades, fetched.Data.Trades)
}

func TestHandleGeneratePlan_BuildsMarketDataWhenAbsent(t *testing.T) {
	builder := &stubBuilder{md: testingpkg.NewMarketDataFixture()}
	router, _ := newTestRouter(t, builder, false)

	w := do(router, http.MethodPost, "/api/rebalancing/plans",
		generateBody(t, testingpkg.NewPortfolioFixture(), nil, nil))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"AAPL", "BND"}, builder.symbols)

	var resp planResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Metadata.Stored)
	assert.Len(t, resp.Data.Trades, 2)
}

func TestHandleGeneratePlan_BuilderFailure(t *testing.T) {
	builder := &stubBuilder{err: domain.ExternalServiceError(errors.New("provider down"))}
	router, _ := newTestRouter(t, builder, false)

	w := do(router, http.MethodPost, "/api/rebalancing/plans",
		generateBody(t, testingpkg.NewPortfolioFixture(), nil, nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "external_service", decodeError(t, w).Error.Kind)
}

func TestHandleGeneratePlan_MarketDataRequiredWithoutBuilder(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)

	w := do(router, http.MethodPost, "/api/rebalancing/plans",
		generateBody(t, testingpkg.NewPortfolioFixture(), nil, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", decodeError(t, w).Error.Kind)
}

func TestHandleGeneratePlan_EmptyPortfolioNeedsNoMarketData(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)
	portfolio := &domain.Portfolio{ID: uuid.New(), Holdings: []domain.Holding{}}

	w := do(router, http.MethodPost, "/api/rebalancing/plans", generateBody(t, portfolio, nil, nil))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp planResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Empty(t, resp.Data.Trades)
	assert.Equal(t, "Portfolio is empty, no action needed.", resp.Data.Summary)
	assert.Equal(t, portfolio.ID, resp.Data.PortfolioID)
}

func TestHandleGeneratePlan_AssignsPortfolioID(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)
	portfolio := testingpkg.NewPortfolioFixture()
	portfolio.ID = uuid.Nil

	w := do(router, http.MethodPost, "/api/rebalancing/plans",
		generateBody(t, portfolio, testingpkg.NewMarketDataFixture(), nil))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp planResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEqual(t, uuid.Nil, resp.Data.PortfolioID)
}

func TestHandleGeneratePlan_MeanVariance(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)
	strategy := rebalancing.Strategy{Kind: rebalancing.StrategyMeanVariance}

	w := do(router, http.MethodPost, "/api/rebalancing/plans",
		generateBody(t, testingpkg.NewPortfolioFixture(), testingpkg.NewMarketDataFixture(), &strategy))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp planResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "MeanVarianceOptimization (risk aversion 2.5)", resp.Metadata.Strategy)
	for _, trade := range resp.Data.Trades {
		assert.Equal(t, "Rebalancing to optimal weights", trade.Reason)
	}
}

func TestHandleGeneratePlan_Errors(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)

	t.Run("malformed body", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/rebalancing/plans", []byte("{not json"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_input", decodeError(t, w).Error.Kind)
	})

	t.Run("missing price", func(t *testing.T) {
		md := domain.NewMarketDataContext()
		md.AddAsset(domain.Asset{ID: "AAPL", AssetClass: domain.AssetClassEquity}, 150, testingpkg.FixtureTime)

		w := do(router, http.MethodPost, "/api/rebalancing/plans",
			generateBody(t, testingpkg.NewPortfolioFixture(), md, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "market_data_missing", resp.Error.Kind)
		assert.Contains(t, resp.Error.Message, "BND")
	})

	t.Run("allocation does not sum to one", func(t *testing.T) {
		body, err := json.Marshal(GeneratePlanRequest{
			Portfolio:        *testingpkg.NewPortfolioFixture(),
			TargetAllocation: map[domain.AssetClass]float64{domain.AssetClassEquity: 0.5},
			MarketData:       testingpkg.NewMarketDataFixture(),
		})
		require.NoError(t, err)

		w := do(router, http.MethodPost, "/api/rebalancing/plans", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_input", decodeError(t, w).Error.Kind)
	})

	t.Run("negative risk aversion", func(t *testing.T) {
		strategy := rebalancing.NewMeanVarianceSelection(rebalancing.MVOConfig{RiskAversion: -1})
		w := do(router, http.MethodPost, "/api/rebalancing/plans",
			generateBody(t, testingpkg.NewPortfolioFixture(), testingpkg.NewMarketDataFixture(), &strategy))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_input", decodeError(t, w).Error.Kind)
	})
}

func TestHandleGetPlan(t *testing.T) {
	router, repo := newTestRouter(t, nil, true)
	plan := testingpkg.NewPlanFixture(uuid.New(), testingpkg.FixtureTime)
	require.NoError(t, repo.Save(context.Background(), plan))

	t.Run("found", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/rebalancing/plans/"+plan.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp planResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, plan.ID, resp.Data.ID)
		assert.Len(t, resp.Data.Trades, 2)
	})

	t.Run("unknown", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/rebalancing/plans/"+uuid.New().String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeError(t, w).Error.Kind)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/rebalancing/plans/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetPlan_NoStore(t *testing.T) {
	router, _ := newTestRouter(t, nil, false)

	w := do(router, http.MethodGet, "/api/rebalancing/plans/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHandleListPortfolioPlans(t *testing.T) {
	router, repo := newTestRouter(t, nil, true)
	portfolioID := uuid.New()
	for i := 0; i < 3; i++ {
		plan := testingpkg.NewPlanFixture(portfolioID, testingpkg.FixtureTime.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Save(context.Background(), plan))
	}
	require.NoError(t, repo.Save(context.Background(), testingpkg.NewPlanFixture(uuid.New(), testingpkg.FixtureTime)))

	w := do(router, http.MethodGet, fmt.Sprintf("/api/rebalancing/portfolios/%s/plans?limit=2", portfolioID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data     []domain.RebalancingPlan `json:"data"`
		Metadata struct {
			Count int `json:"count"`
		} `json:"metadata"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Metadata.Count)
	assert.True(t, resp.Data[0].CreatedAt.After(resp.Data[1].CreatedAt))

	w = do(router, http.MethodGet, fmt.Sprintf("/api/rebalancing/portfolios/%s/plans?limit=abc", portfolioID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUpdateStatus(t *testing.T) {
	router, repo := newTestRouter(t, nil, true)
	plan := testingpkg.NewPlanFixture(uuid.New(), testingpkg.FixtureTime)
	require.NoError(t, repo.Save(context.Background(), plan))
	path := "/api/rebalancing/plans/" + plan.ID.String() + "/status"

	w := do(router, http.MethodPost, path, []byte(`{"status":"Executed"}`))
	require.Equal(t, http.StatusOK, w.Code)
	var resp planResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, domain.PlanStatusExecuted, resp.Data.Status)

	w = do(router, http.MethodPost, path, []byte(`{"status":"Cancelled"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, w).Error.Kind)

	w = do(router, http.MethodPost, path, []byte(`{"status":"Done"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/rebalancing/plans/"+uuid.New().String()+"/status", []byte(`{"status":"Failed"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"timeout", fmt.Errorf("%w: %w", domain.ErrPrediction, context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"not found", fmt.Errorf("%w: x", plans.ErrPlanNotFound), http.StatusNotFound, "not_found"},
		{"transition", fmt.Errorf("%w: x", plans.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{"missing data", domain.MissingPrice("AAPL"), http.StatusBadRequest, "market_data_missing"},
		{"invalid", domain.InvalidInputf("bad"), http.StatusBadRequest, "invalid_input"},
		{"optimization", domain.OptimizationErrorf("singular"), http.StatusUnprocessableEntity, "optimization"},
		{"prediction", domain.PredictionErrorf("down"), http.StatusBadGateway, "prediction"},
		{"risk model", domain.RiskModelErrorf("down"), http.StatusBadGateway, "risk_model"},
		{"external", domain.ExternalServiceError(errors.New("eof")), http.StatusBadGateway, "external_service"},
		{"internal", domain.InternalErrorf("bug"), http.StatusInternalServerError, "internal"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := StatusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestStrategyFor_AppliesDefaults(t *testing.T) {
	h := NewHandler(newTestService(), nil, nil, testDefaults, testLogger())

	s := h.strategyFor(nil)
	require.NotNil(t, s.Threshold)
	assert.Equal(t, rebalancing.StrategyThreshold, s.Kind)
	assert.Equal(t, 0.05, s.Threshold.DeviationThreshold)

	s = h.strategyFor(&rebalancing.Strategy{Kind: rebalancing.StrategyMeanVariance})
	require.NotNil(t, s.MeanVariance)
	assert.Equal(t, 2.5, s.MeanVariance.RiskAversion)

	requested := rebalancing.NewThresholdStrategySelection(0.1)
	s = h.strategyFor(&requested)
	assert.Equal(t, 0.1, s.Threshold.DeviationThreshold)

	requested = rebalancing.NewMeanVarianceSelection(rebalancing.MVOConfig{RiskAversion: 4})
	s = h.strategyFor(&requested)
	assert.Equal(t, 4.0, s.MeanVariance.RiskAversion)
}
