package traffic_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depotroute/depotroute/internal/traffic"
)

func TestPacer_SpacesRequests(t *testing.T) {
	pacer := traffic.NewPacer(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, pacer.Wait(ctx))

	start := time.Now()
	require.NoError(t, pacer.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestPacer_FirstCallDoesNotWait(t *testing.T) {
	pacer := traffic.NewPacer(time.Second)

	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))

	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_ContextCancellation(t *testing.T) {
	pacer := traffic.NewPacer(time.Minute)
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pacer.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPacer_DefaultInterval(t *testing.T) {
	pacer := traffic.NewPacer(0)
	ctx := context.Background()

	require.NoError(t, pacer.Wait(ctx))

	start := time.Now()
	require.NoError(t, pacer.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), traffic.DefaultMinRequestInterval)
}
