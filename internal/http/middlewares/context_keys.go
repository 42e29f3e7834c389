package middlewares

const (
	CtxRequestID = "request_id"
	CtxAdminID   = "admin_id"
)
