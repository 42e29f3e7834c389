package principal

import (
	"slices"
	"time"
)

// Kind selects the storage namespace a principal lives in.
type Kind string

const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

type Permission string

const (
	PermRead        Permission = "read"
	PermWrite       Permission = "write"
	PermDelete      Permission = "delete"
	PermManageUsers Permission = "manage_users"
)

// RoleAdmin is assigned at creation and never changed afterwards.
const RoleAdmin = "admin"

// DefaultAdminPermissions is the set granted on admin registration.
func DefaultAdminPermissions() []Permission {
	return []Permission{PermRead, PermWrite, PermDelete, PermManageUsers}
}

type Principal struct {
	ID           string       `json:"id"`
	Kind         Kind         `json:"kind"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // never expose hash in JSON
	Role         string       `json:"role,omitempty"`
	Permissions  []Permission `json:"permissions,omitempty"`
	IsActive     bool         `json:"isActive"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastLoginAt  *time.Time   `json:"lastLoginAt,omitempty"`
}

func (p Principal) HasPermission(perm Permission) bool {
	return slices.Contains(p.Permissions, perm)
}

// Active reports whether the principal may authenticate. Users carry no
// activation flag.
func (p Principal) Active() bool {
	if p.Kind == KindUser {
		return true
	}
	return p.IsActive
}

// Identity is what the admin gate attaches to the request context.
type Identity struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

func (p Principal) Identity() Identity {
	return Identity{
		ID:          p.ID,
		Email:       p.Email,
		Name:        p.Name,
		Permissions: slices.Clone(p.Permissions),
	}
}

func (id Identity) HasPermission(perm Permission) bool {
	return slices.Contains(id.Permissions, perm)
}
