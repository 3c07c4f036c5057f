// Package identity carries the authenticated user through a request's
// context.Context, so code below the HTTP layer never touches gin.
package identity

import (
	"context"

	"github.com/geocoder89/userhub/internal/domain/user"
)

type ctxKey struct{}

// Identity is the projection the auth guard resolves from the store on
// every protected request.
type Identity struct {
	ID     string
	Name   string
	Email  string
	Status user.Status
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKey{}).(Identity)

	return v, ok && v.ID != ""
}
