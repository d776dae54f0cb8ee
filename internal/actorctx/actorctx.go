// Package actorctx carries the authenticated caller through context.Context
// so code below the HTTP layer can log who is acting.
package actorctx

import (
	"context"

	"github.com/geocoder89/authhub/internal/auth"
)

type ctxKey struct{}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*auth.Claims)

	return c, ok && c != nil
}

func UserIDFrom(ctx context.Context) (string, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok || c.UserID() == "" {
		return "", false
	}

	return c.UserID(), true
}
