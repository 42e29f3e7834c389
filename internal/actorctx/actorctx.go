// Package actorctx carries the authenticated admin identity through a
// request context once the admin gate has let the caller through.
package actorctx

import (
	"context"

	"github.com/geocoder89/authgate/internal/domain/principal"
)

type adminKey struct{}

func WithAdmin(ctx context.Context, id principal.Identity) context.Context {
	return context.WithValue(ctx, adminKey{}, id)
}

func AdminFrom(ctx context.Context) (principal.Identity, bool) {
	v, ok := ctx.Value(adminKey{}).(principal.Identity)

	return v, ok && v.ID != ""
}
