package handler

import (
	"context"

	"github.com/depotroute/depotroute/internal/api/middleware"
)

// GetClientID retrieves the authenticated client ID from the context.
// This is a convenience wrapper around middleware.GetClientID.
func GetClientID(ctx context.Context) string {
	return middleware.GetClientID(ctx)
}
