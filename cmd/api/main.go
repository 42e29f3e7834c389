package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/authgate/internal/auth"
	"github.com/geocoder89/authgate/internal/config"
	"github.com/geocoder89/authgate/internal/db"
	httpx "github.com/geocoder89/authgate/internal/http"
	"github.com/geocoder89/authgate/internal/notifications"
	"github.com/geocoder89/authgate/internal/observability"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/geocoder89/authgate/internal/repo/memory"
	"github.com/geocoder89/authgate/internal/repo/postgres"
	"github.com/geocoder89/authgate/internal/repo/redisstore"
	"github.com/geocoder89/authgate/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Env:         cfg.Env,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	store, closeStore, err := openStore(ctx, cfg, log, prom)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	hasher, err := security.NewHasher(cfg.BcryptCost)
	if err != nil {
		log.Error("hasher init failed", "err", err)
		os.Exit(1)
	}

	notifier, closeNotifier, err := openAuditNotifier(ctx, cfg, log)
	if err != nil {
		log.Error("audit notifier init failed", "err", err)
		os.Exit(1)
	}
	defer closeNotifier()

	svc, err := auth.NewService(auth.Options{
		Store:       store,
		Hasher:      hasher,
		AdminSecret: cfg.AdminSecret,
		Logger:      log,
		Metrics:     prom,
		Notifier:    notifier,
	})
	if err != nil {
		log.Error("auth service init failed", "err", err)
		os.Exit(1)
	}

	if cfg.AdminSecret == config.DefaultAdminSecret {
		log.Warn("ADMIN_SECRET_KEY is the default value; set it before exposing this service")
	}

	// set up routers with the log
	router := httpx.NewRouter(log, httpx.RouterConfig{
		Env:                cfg.Env,
		ServiceName:        cfg.ServiceName,
		TracingEnabled:     cfg.OTelEnabled,
		RequestTimeout:     cfg.RequestTimeout,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, httpx.Deps{
		Auth:     svc,
		Ping:     store.Ping,
		Prom:     prom,
		Gatherer: reg,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// openStore builds the configured backend. The returned close func is
// always safe to call.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger, prom *observability.Prom) (repo.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if cfg.RunMigrations {
			m, err := db.NewMigrator(cfg.DBURL)
			if err != nil {
				return nil, nil, fmt.Errorf("open migrator: %w", err)
			}
			err = m.Up()
			closeErr := m.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("migrate up: %w", err)
			}
			if closeErr != nil {
				log.Warn("migrator close failed", "err", closeErr)
			}
			log.Info("migrations applied")
		}

		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(pool, prom), pool.Close, nil

	case config.StoreRedis:
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		rdb, err := redisstore.Connect(rctx, redisstore.ClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis connect: %w", err)
		}
		return redisstore.NewStore(rdb, cfg.RedisPrefix, prom), func() { _ = rdb.Close() }, nil

	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openAuditNotifier returns nil when no audit stream is configured. The
// stream gets its own client so a slow audit sink cannot starve the store.
func openAuditNotifier(ctx context.Context, cfg config.Config, log *slog.Logger) (notifications.AuditNotifier, func(), error) {
	if cfg.AuditStream == "" {
		log.Info("audit stream disabled; purges are recorded in the log only")
		return nil, func() {}, nil
	}

	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := redisstore.Connect(rctx, redisstore.ClientConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("audit redis connect: %w", err)
	}

	notifier := notifications.NewProtectedNotifier(
		notifications.NewStreamNotifier(rdb, cfg.AuditStream, cfg.AuditStreamMaxLen),
		notifications.ProtectedNotifierConfig{
			Timeout:          2 * time.Second,
			FailureThreshold: 3,
			Cooldown:         30 * time.Second,
			HalfOpenMaxCalls: 1,
		},
	)
	return notifier, func() { _ = rdb.Close() }, nil
}
