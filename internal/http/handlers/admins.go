package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/authgate/internal/actorctx"
	"github.com/geocoder89/authgate/internal/auth"
	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/gin-gonic/gin"
)

type AdminAuthenticator interface {
	RegisterAdmin(ctx context.Context, in auth.AdminRegistration) (auth.Summary, error)
	LoginAdmin(ctx context.Context, in auth.Credentials) (auth.Summary, error)
	PurgeAll(ctx context.Context, actor principal.Identity) (auth.PurgeReport, error)
}

type AdminsHandler struct {
	svc AdminAuthenticator
}

func NewAdminsHandler(svc AdminAuthenticator) *AdminsHandler {
	return &AdminsHandler{svc: svc}
}

func (h *AdminsHandler) Register(ctx *gin.Context) {
	var req auth.AdminRegistration

	if !BindJSON(ctx, &req) {
		return
	}

	out, err := h.svc.RegisterAdmin(ctx.Request.Context(), req)
	if err != nil {
		RespondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, summaryBody("Admin registered!", out))
}

func (h *AdminsHandler) Login(ctx *gin.Context) {
	var req auth.Credentials

	if !BindJSON(ctx, &req) {
		return
	}

	out, err := h.svc.LoginAdmin(ctx.Request.Context(), req)
	if err != nil {
		RespondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, summaryBody("Admin logged in!", out))
}

// DeleteAllRecords must be mounted behind the admin gate middleware.
func (h *AdminsHandler) DeleteAllRecords(ctx *gin.Context) {
	actor, ok := actorctx.AdminFrom(ctx.Request.Context())
	if !ok {
		RespondError(ctx, http.StatusForbidden, string(auth.KindInsufficientPermission), "Admin verification required", nil)
		return
	}

	report, err := h.svc.PurgeAll(ctx.Request.Context(), actor)
	if err != nil {
		RespondAuthError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":        "All records deleted successfully",
		"deleted":        report.Deleted,
		"previousCounts": report.PreviousCounts,
		"deletedBy":      report.DeletedBy,
		"timestamp":      report.Timestamp,
	})
}
