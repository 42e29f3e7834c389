package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/authgate/internal/auth"
	"github.com/geocoder89/authgate/internal/http/handlers"
	"github.com/geocoder89/authgate/internal/http/middlewares"
	"github.com/geocoder89/authgate/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	Env                string
	ServiceName        string
	TracingEnabled     bool
	RequestTimeout     time.Duration
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
}

type Deps struct {
	Auth *auth.Service
	// Ping backs /readyz; nil means always ready.
	Ping func(ctx context.Context) error

	// Prom and Gatherer are optional; /metrics is only mounted with a Gatherer.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, cfg RouterConfig, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	}
	r.Use(middlewares.RequestTimeout(cfg.RequestTimeout))

	// health
	h := handlers.NewHealthHandler(deps.Ping)
	r.GET("/", handlers.Hello)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	users := handlers.NewUsersHandler(deps.Auth)
	admins := handlers.NewAdminsHandler(deps.Auth)

	userGroup := r.Group("/user", middlewares.RequireJSON())
	userGroup.POST("/register", users.Register)
	userGroup.POST("/login", users.Login)

	adminGroup := r.Group("/admin", middlewares.RequireJSON())
	adminGroup.POST("/register", admins.Register)
	adminGroup.POST("/login", admins.Login)
	adminGroup.DELETE("/delete-all-records", middlewares.RequireAdminAccess(deps.Auth), admins.DeleteAllRecords)

	return r
}
