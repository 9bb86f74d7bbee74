// Package tenant resolves the tenant (magasin) every core operation is scoped to.
package tenant

import (
	"context"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
)

// Require returns the tenant ID carried by the authenticated identity.
// Repositories call it before building any statement, so a query without a
// tenant predicate cannot be issued.
func Require(ctx context.Context) (string, error) {
	if id := appctx.GetTenantID(ctx); id != "" {
		return id, nil
	}
	return "", apperror.NewUnauthorized("tenant not resolved for request")
}

// WithTenant returns a context acting as userID inside tenantID.
// Used by background jobs and tests that have no HTTP identity.
func WithTenant(ctx context.Context, tenantID, userID string) context.Context {
	return appctx.WithUser(ctx, &appctx.UserContext{UserID: userID, TenantID: tenantID})
}
