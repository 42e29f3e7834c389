package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAdminSecret is the documented insecure fallback. Validate refuses
// it in prod.
const DefaultAdminSecret = "ADMIN_SECRET_KEY"

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	Env  string
	Port int

	StoreDriver string
	DBURL       string
	DBMaxConns  int32
	// RunMigrations applies the embedded schema on startup (postgres only).
	RunMigrations bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// AuditStream is the Redis stream purge notices are appended to. Empty
	// disables the notifier; the commit-point log line is always written.
	AuditStream       string
	AuditStreamMaxLen int64

	AdminSecret string
	BcryptCost  int

	RequestTimeout     time.Duration
	MaxBodyBytes       int64
	CORSAllowedOrigins []string

	ServiceName  string
	OTelEnabled  bool
	OTelEndpoint string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real env vars win.
func Load() Config {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := getEnv("DATABASE_URL", buildDBURL())

	return Config{
		Env:  env,
		Port: port,

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		DBURL:         dbURL,
		DBMaxConns:    int32(getEnvInt("DB_MAX_CONNS", 5)),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", false),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "authgate"),

		AuditStream:       getEnv("AUDIT_REDIS_STREAM", ""),
		AuditStreamMaxLen: int64(getEnvInt("AUDIT_STREAM_MAXLEN", 10000)),

		AdminSecret: getEnv("ADMIN_SECRET_KEY", DefaultAdminSecret),
		BcryptCost:  getEnvInt("BCRYPT_COST", 10),

		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 5000)) * time.Millisecond,
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		ServiceName:  getEnv("SERVICE_NAME", "authgate"),
		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// Validate fails fast on settings the service must not start with.
func (c Config) Validate() error {
	var errs []error

	if c.IsProd() && (c.AdminSecret == "" || c.AdminSecret == DefaultAdminSecret) {
		errs = append(errs, errors.New("ADMIN_SECRET_KEY must be set to a non-default value in prod"))
	}
	if c.AdminSecret == "" {
		errs = append(errs, errors.New("ADMIN_SECRET_KEY must not be empty"))
	}

	switch c.StoreDriver {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.IsProd() && c.StoreDriver == StoreMemory {
		errs = append(errs, errors.New("STORE_DRIVER=memory is not allowed in prod"))
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range [4,31]", c.BcryptCost))
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_MS must be positive"))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "authgate")
	pass := getEnv("DB_PASSWORD", "authgate")
	name := getEnv("DB_NAME", "authgate")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
