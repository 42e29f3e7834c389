// Package auth implements the credential workflows: registration and login
// for users and admins, the admin authorization gate, and the bulk delete it
// protects. Workflows are stateless; every invocation only touches the
// injected store.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/notifications"
	"github.com/geocoder89/authgate/internal/observability"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CredentialHasher hashes and verifies passwords at rest.
type CredentialHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type Options struct {
	Store       repo.Store
	Hasher      CredentialHasher
	AdminSecret string

	Logger   *slog.Logger
	Metrics  *observability.Prom
	Notifier notifications.AuditNotifier
	Now      func() time.Time
}

type Service struct {
	store       repo.Store
	hasher      CredentialHasher
	adminSecret string

	log      *slog.Logger
	metrics  *observability.Prom
	notifier notifications.AuditNotifier
	now      func() time.Time
}

func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	if opts.Hasher == nil {
		return nil, errors.New("auth: hasher is required")
	}
	if opts.AdminSecret == "" {
		return nil, errors.New("auth: admin secret is required")
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		store:       opts.Store,
		hasher:      opts.Hasher,
		adminSecret: opts.AdminSecret,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		notifier:    opts.Notifier,
		now:         opts.Now,
	}, nil
}

// Credentials is the login input for either namespace.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

type AdminRegistration struct {
	Registration
	SecretKey string `json:"secretKey" validate:"required"`
}

// GateRequest carries the three factors the admin gate checks together.
type GateRequest struct {
	AdminEmail    string `json:"adminEmail" validate:"required"`
	AdminPassword string `json:"adminPassword" validate:"required"`
	SecretKey     string `json:"secretKey" validate:"required"`
}

// Summary is what a successful register or login hands back. It never
// contains the password or its hash.
type Summary struct {
	ID          string                 `json:"id,omitempty"`
	Email       string                 `json:"email"`
	Name        string                 `json:"name"`
	Role        string                 `json:"role,omitempty"`
	Permissions []principal.Permission `json:"permissions,omitempty"`
	LastLoginAt *time.Time             `json:"lastLoginAt,omitempty"`
}

func summaryOf(p principal.Principal) Summary {
	s := Summary{
		ID:          p.ID,
		Email:       p.Email,
		Name:        p.Name,
		LastLoginAt: p.LastLoginAt,
	}
	if p.Kind == principal.KindAdmin {
		s.Role = p.Role
		s.Permissions = p.Permissions
	}
	return s
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report json names ("secretKey") rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// missingFields returns the json names of every absent required field.
func missingFields(in any) []string {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"body"}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

// track opens a span for flow. The returned func ends it and records the
// outcome on both the span and the auth counter.
func (s *Service) track(ctx context.Context, flow string) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "auth."+flow, attribute.String("auth.flow", flow))

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
			if KindOf(err).Class() == ClassInternal {
				span.SetStatus(codes.Error, outcome)
			}
		}
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		span.End()

		s.metrics.ObserveAuth(flow, outcome)
	}
}

// unavailable logs the cause and returns the generic store error.
func (s *Service) unavailable(ctx context.Context, flow, msg string, err error) error {
	s.log.ErrorContext(ctx, "store operation failed", "flow", flow, "err", err)
	return storeError(msg, err)
}
