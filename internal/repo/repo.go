// Package repo defines the credential store contract shared by every
// storage backend. Each principal kind is an independent namespace keyed by
// email.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authgate/internal/domain/principal"
)

var (
	ErrNotFound   = errors.New("principal not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Namespace is the per-kind store. Create must reject a duplicate email
// atomically with ErrEmailTaken; callers never pre-check.
type Namespace interface {
	FindByEmail(ctx context.Context, email string) (principal.Principal, error)
	Create(ctx context.Context, p principal.Principal) (principal.Principal, error)
	// TouchLastLogin writes the last-login timestamp only. The stored hash is
	// left untouched.
	TouchLastLogin(ctx context.Context, email string, at time.Time) error
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type PurgeCounts struct {
	UsersBefore   int64
	AdminsBefore  int64
	UsersDeleted  int64
	AdminsDeleted int64
}

// Purger counts and empties both namespaces as one logical unit.
type Purger interface {
	Purge(ctx context.Context) (PurgeCounts, error)
}

type Store interface {
	Purger
	Users() Namespace
	Admins() Namespace
	Ping(ctx context.Context) error
}

// For returns the store partition for kind.
func For(s Store, kind principal.Kind) Namespace {
	if kind == principal.KindAdmin {
		return s.Admins()
	}
	return s.Users()
}
