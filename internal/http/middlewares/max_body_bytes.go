package middlewares

import (
	"fmt"
	"net/http"

	"github.com/geocoder89/authgate/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// MaxBodyBytes rejects a declared oversize body before any handler runs and
// caps undeclared (chunked) bodies while they are read.
func MaxBodyBytes(max int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength > max {
			handlers.RespondError(ctx, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("Request body exceeds %d bytes", max), nil)
			ctx.Abort()
			return
		}

		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)

		ctx.Next()
	}
}
