package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedPlan(id string, createdAt time.Time) *DeliveryPlan {
	return &DeliveryPlan{
		ID:        id,
		CreatedAt: createdAt,
		Provider:  "tomtom",
		Mode:      ModeOrdered,
	}
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, storedPlan("plan-1", now)))

	got, err := repo.Get(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "plan-1", got.ID)
	assert.Equal(t, "tomtom", got.Provider)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestMemoryRepository_GetUnknownID(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestMemoryRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, storedPlan("plan-1", time.Now())))

	first, err := repo.Get(ctx, "plan-1")
	require.NoError(t, err)
	first.Provider = "mutated"

	second, err := repo.Get(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "tomtom", second.Provider)
}

func TestMemoryRepository_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, storedPlan("plan-old", base)))
	require.NoError(t, repo.Create(ctx, storedPlan("plan-mid", base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, storedPlan("plan-new", base.Add(2*time.Hour))))

	plans, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "plan-new", plans[0].ID)
	assert.Equal(t, "plan-mid", plans[1].ID)
	assert.Equal(t, "plan-old", plans[2].ID)
}

func TestMemoryRepository_ListAppliesLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, storedPlan("plan-1", base)))
	require.NoError(t, repo.Create(ctx, storedPlan("plan-2", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, storedPlan("plan-3", base.Add(2*time.Minute))))

	plans, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "plan-3", plans[0].ID)
	assert.Equal(t, "plan-2", plans[1].ID)
}
