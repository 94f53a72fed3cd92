package planner

import "context"

// PlanRepository persists finished delivery plans. Plans are written exactly
// once, keyed by id; there are no partial writes.
type PlanRepository interface {
	// Create stores a new plan.
	Create(ctx context.Context, plan *DeliveryPlan) error

	// Get retrieves a plan by id. Returns ErrPlanNotFound when absent.
	Get(ctx context.Context, id string) (*DeliveryPlan, error)

	// List returns the most recent plans, newest first.
	List(ctx context.Context, limit int) ([]*DeliveryPlan, error)
}
