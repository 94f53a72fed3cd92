package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a pgx-backed PlanRepository. The full plan travels
// as a JSONB payload; id and created_at are lifted into columns for lookup
// and ordering.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres-backed plan repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create implements PlanRepository.
func (r *PostgresRepository) Create(ctx context.Context, plan *DeliveryPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO delivery_plans (id, created_at, provider, payload)
		 VALUES ($1, $2, $3, $4)`,
		plan.ID, plan.CreatedAt, plan.Provider, payload,
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// Get implements PlanRepository.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*DeliveryPlan, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM delivery_plans WHERE id = $1`,
		id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query plan: %w", err)
	}

	var plan DeliveryPlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &plan, nil
}

// List implements PlanRepository.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*DeliveryPlan, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT payload FROM delivery_plans ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []*DeliveryPlan
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		var plan DeliveryPlan
		if err := json.Unmarshal(payload, &plan); err != nil {
			return nil, fmt.Errorf("decode plan: %w", err)
		}
		plans = append(plans, &plan)
	}
	return plans, rows.Err()
}
