package planner

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory PlanRepository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.RWMutex
	plans map[string]*DeliveryPlan
}

// NewMemoryRepository creates an empty in-memory plan repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{plans: make(map[string]*DeliveryPlan)}
}

// Create implements PlanRepository.
func (r *MemoryRepository) Create(_ context.Context, plan *DeliveryPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *plan
	r.plans[plan.ID] = &copied
	return nil
}

// Get implements PlanRepository.
func (r *MemoryRepository) Get(_ context.Context, id string) (*DeliveryPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	copied := *plan
	return &copied, nil
}

// List implements PlanRepository.
func (r *MemoryRepository) List(_ context.Context, limit int) ([]*DeliveryPlan, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	plans := make([]*DeliveryPlan, 0, len(r.plans))
	for _, plan := range r.plans {
		copied := *plan
		plans = append(plans, &copied)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})
	if len(plans) > limit {
		plans = plans[:limit]
	}
	return plans, nil
}
