package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/authgate/internal/auth"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// StatusFor maps a workflow error class to an HTTP status.
func StatusFor(c auth.Class) int {
	switch c {
	case auth.ClassBadRequest:
		return http.StatusBadRequest
	case auth.ClassUnauthorized:
		return http.StatusUnauthorized
	case auth.ClassForbidden:
		return http.StatusForbidden
	case auth.ClassConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondAuthError renders a workflow error. Infrastructure failures only
// ever show their generic message.
func RespondAuthError(ctx *gin.Context, err error) {
	var e *auth.Error
	if !errors.As(err, &e) {
		RespondInternal(ctx, "Server error")
		return
	}

	msg := e.Message
	if msg == "" {
		msg = "Server error"
	}

	var details interface{}
	switch e.Kind {
	case auth.KindMissingFields:
		details = gin.H{"fields": e.Fields}
	case auth.KindWeakPassword:
		details = gin.H{"failedRules": e.Failed}
	}

	RespondError(ctx, StatusFor(e.Kind.Class()), string(e.Kind), msg, details)
}
