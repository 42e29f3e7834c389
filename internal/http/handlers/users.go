package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/authgate/internal/auth"
	"github.com/gin-gonic/gin"
)

type UserAuthenticator interface {
	RegisterUser(ctx context.Context, in auth.Registration) (auth.Summary, error)
	LoginUser(ctx context.Context, in auth.Credentials) (auth.Summary, error)
}

type UsersHandler struct {
	svc UserAuthenticator
}

func NewUsersHandler(svc UserAuthenticator) *UsersHandler {
	return &UsersHandler{svc: svc}
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req auth.Registration

	if !BindJSON(ctx, &req) {
		return
	}

	out, err := h.svc.RegisterUser(ctx.Request.Context(), req)
	if err != nil {
		RespondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, summaryBody("User registered!", out))
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req auth.Credentials

	if !BindJSON(ctx, &req) {
		return
	}

	out, err := h.svc.LoginUser(ctx.Request.Context(), req)
	if err != nil {
		RespondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, summaryBody("User logged in!", out))
}

// summaryBody flattens the summary next to the message. Admin-only fields
// are left out for users.
func summaryBody(message string, s auth.Summary) gin.H {
	body := gin.H{
		"message": message,
		"email":   s.Email,
		"name":    s.Name,
	}
	if s.Role != "" {
		body["role"] = s.Role
	}
	if len(s.Permissions) > 0 {
		body["permissions"] = s.Permissions
	}
	return body
}
