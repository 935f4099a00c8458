package http

import (
	"context"

	"gearshare-backend/internal/security"
	"gearshare-backend/internal/service"
)

type ctxKey int

const claimsKey ctxKey = iota

func withClaims(ctx context.Context, c *security.UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the verified token claims of the request, if any.
func ClaimsFromContext(ctx context.Context) (*security.UserClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*security.UserClaims)
	return c, ok && c != nil
}

func actorFromContext(ctx context.Context) service.Actor {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return service.Actor{}
	}
	return service.Actor{UserID: c.UserID(), IsAdmin: c.IsAdmin()}
}
