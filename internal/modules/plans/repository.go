// Package plans persists rebalancing plans and tracks their execution status.
package plans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/rebalancer/internal/database"
	"github.com/aristath/rebalancer/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultListLimit caps ListByPortfolio when no limit is given
const DefaultListLimit = 50

var (
	// ErrPlanNotFound is returned when no plan has the requested ID
	ErrPlanNotFound = errors.New("plan not found")
	// ErrInvalidTransition is returned for status changes out of a terminal state
	ErrInvalidTransition = errors.New("invalid plan status transition")
)

// storedTrade is the msgpack layout of one trade order in the trades column
type storedTrade struct {
	AssetID        string  `msgpack:"a"`
	OrderType      string  `msgpack:"t"`
	Quantity       float64 `msgpack:"q"`
	EstimatedValue float64 `msgpack:"v"`
	Reason         string  `msgpack:"r"`
}

// Repository stores plans in the plans database.
// The execution collaborator uses it to move plans out of Pending.
type Repository struct {
	db  *database.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a plan repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repository", "plans").Logger(),
	}
}

func encodeTrades(trades []domain.TradeOrder) ([]byte, error) {
	stored := make([]storedTrade, len(trades))
	for i, t := range trades {
		stored[i] = storedTrade{
			AssetID:        t.AssetID,
			OrderType:      string(t.OrderType),
			Quantity:       t.Quantity,
			EstimatedValue: t.EstimatedValue,
			Reason:         t.Reason,
		}
	}
	return msgpack.Marshal(stored)
}

func decodeTrades(data []byte) ([]domain.TradeOrder, error) {
	var stored []storedTrade
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	trades := make([]domain.TradeOrder, len(stored))
	for i, s := range stored {
		trades[i] = domain.TradeOrder{
			AssetID:        s.AssetID,
			OrderType:      domain.OrderType(s.OrderType),
			Quantity:       s.Quantity,
			EstimatedValue: s.EstimatedValue,
			Reason:         s.Reason,
		}
	}
	return trades, nil
}

// Save inserts a plan. Saving an existing ID fails.
func (r *Repository) Save(ctx context.Context, plan *domain.RebalancingPlan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}

	blob, err := encodeTrades(plan.Trades)
	if err != nil {
		return fmt.Errorf("failed to encode trades for plan %s: %w", plan.ID, err)
	}

	_, err = r.db.Conn().ExecContext(ctx, `
		INSERT INTO rebalancing_plans (id, portfolio_id, created_at, updated_at, status, summary, num_trades, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		plan.ID.String(),
		plan.PortfolioID.String(),
		plan.CreatedAt.UTC().UnixMilli(),
		r.now().UTC().UnixMilli(),
		string(plan.Status),
		plan.Summary,
		len(plan.Trades),
		blob,
	)
	if err != nil {
		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}

	r.log.Debug().
		Str("plan_id", plan.ID.String()).
		Str("portfolio_id", plan.PortfolioID.String()).
		Int("num_trades", len(plan.Trades)).
		Msg("Saved rebalancing plan")

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (*domain.RebalancingPlan, error) {
	var (
		id, portfolioID, status, summary string
		createdAt                        int64
		blob                             []byte
	)
	if err := row.Scan(&id, &portfolioID, &createdAt, &status, &summary, &blob); err != nil {
		return nil, err
	}

	planID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid plan id %q: %w", id, err)
	}
	pid, err := uuid.Parse(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("invalid portfolio id %q: %w", portfolioID, err)
	}
	trades, err := decodeTrades(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode trades for plan %s: %w", id, err)
	}

	return &domain.RebalancingPlan{
		ID:          planID,
		PortfolioID: pid,
		CreatedAt:   time.UnixMilli(createdAt).UTC(),
		Trades:      trades,
		Summary:     summary,
		Status:      domain.PlanStatus(status),
	}, nil
}

// GetByID returns a plan or ErrPlanNotFound
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RebalancingPlan, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, portfolio_id, created_at, status, summary, trades
		FROM rebalancing_plans
		WHERE id = ?
	`, id.String())

	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %s: %w", id, err)
	}
	return plan, nil
}

// ListByPortfolio returns a portfolio's plans, newest first
func (r *Repository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, limit int) ([]*domain.RebalancingPlan, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, portfolio_id, created_at, status, summary, trades
		FROM rebalancing_plans
		WHERE portfolio_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, portfolioID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := make([]*domain.RebalancingPlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}

	return plans, nil
}

// UpdateStatus moves a plan to next. Only Pending plans can change status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.PlanStatus) (*domain.RebalancingPlan, error) {
	var updated *domain.RebalancingPlan

	err := database.WithTransaction(ctx, r.db.Conn(), func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, portfolio_id, created_at, status, summary, trades
			FROM rebalancing_plans
			WHERE id = ?
		`, id.String())

		plan, err := scanPlan(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrPlanNotFound, id)
		}
		if err != nil {
			return err
		}

		if !plan.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, plan.Status, next)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE rebalancing_plans
			SET status = ?, updated_at = ?
			WHERE id = ?
		`, string(next), r.now().UTC().UnixMilli(), id.String()); err != nil {
			return fmt.Errorf("failed to update plan status: %w", err)
		}

		plan.Status = next
		updated = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("plan_id", id.String()).
		Str("status", string(next)).
		Msg("Plan status updated")

	return updated, nil
}

// ExpirePending cancels Pending plans created before olderThan and returns how many were cancelled
func (r *Repository) ExpirePending(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.Conn().ExecContext(ctx, `
		UPDATE rebalancing_plans
		SET status = ?, updated_at = ?
		WHERE status = ? AND created_at < ?
	`,
		string(domain.PlanStatusCancelled),
		r.now().UTC().UnixMilli(),
		string(domain.PlanStatusPending),
		olderThan.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending plans: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired plans: %w", err)
	}
	return n, nil
}
