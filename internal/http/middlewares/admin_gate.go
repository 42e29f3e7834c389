package middlewares

import (
	"context"

	"github.com/geocoder89/authgate/internal/actorctx"
	"github.com/geocoder89/authgate/internal/auth"
	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type AdminAuthorizer interface {
	AuthorizeAdmin(ctx context.Context, in auth.GateRequest) (principal.Identity, error)
}

// RequireAdminAccess reads adminEmail, adminPassword and secretKey from the
// JSON body. Only when all gate checks pass does the next handler run, with
// the admin identity on the request context.
func RequireAdminAccess(gate AdminAuthorizer) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req auth.GateRequest

		if !handlers.BindJSON(ctx, &req) {
			ctx.Abort()
			return
		}

		id, err := gate.AuthorizeAdmin(ctx.Request.Context(), req)
		if err != nil {
			handlers.RespondAuthError(ctx, err)
			ctx.Abort()
			return
		}

		ctx.Set(CtxAdminID, id.ID)
		ctx.Request = ctx.Request.WithContext(actorctx.WithAdmin(ctx.Request.Context(), id))

		ctx.Next()
	}
}
