package auth

import (
	"context"
	"errors"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/geocoder89/authgate/internal/security"
	"github.com/geocoder89/authgate/internal/validation"
)

const flowGate = "admin_gate"

// AuthorizeAdmin checks the three gate factors plus the delete permission.
// The first failing check wins:
//
//	presence, email format, shared secret, lookup, active, password, permission
func (s *Service) AuthorizeAdmin(ctx context.Context, in GateRequest) (principal.Identity, error) {
	ctx, done := s.track(ctx, flowGate)
	id, err := s.authorize(ctx, in)
	done(err)
	return id, err
}

func (s *Service) authorize(ctx context.Context, in GateRequest) (principal.Identity, error) {
	if fields := missingFields(in); len(fields) > 0 {
		return principal.Identity{}, missingFieldsError(msgGateRequired, fields)
	}

	email := validation.NormalizeEmail(in.AdminEmail)
	if !validation.ValidEmail(email) {
		return principal.Identity{}, newError(KindInvalidEmail, msgInvalidEmail)
	}

	if !security.SecretsEqual(in.SecretKey, s.adminSecret) {
		s.log.WarnContext(ctx, "admin gate: invalid secret", "email", email)
		return principal.Identity{}, newError(KindInvalidSecret, msgInvalidSecret)
	}

	admin, err := s.store.Admins().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.log.WarnContext(ctx, "admin gate: unknown admin", "email", email)
			return principal.Identity{}, newError(KindInvalidCredentials, msgGateInvalidCredentials)
		}
		return principal.Identity{}, s.unavailable(ctx, flowGate, msgGateServerError, err)
	}

	if !admin.IsActive {
		s.log.WarnContext(ctx, "admin gate: deactivated admin", "email", email)
		return principal.Identity{}, newError(KindAccountDeactivated, msgGateDeactivated)
	}

	if !s.hasher.Verify(in.AdminPassword, admin.PasswordHash) {
		s.log.WarnContext(ctx, "admin gate: bad password", "email", email)
		return principal.Identity{}, newError(KindInvalidCredentials, msgGateInvalidCredentials)
	}

	if !admin.HasPermission(principal.PermDelete) {
		s.log.WarnContext(ctx, "admin gate: missing delete permission", "email", email)
		return principal.Identity{}, newError(KindInsufficientPermission, msgGateNoDelete)
	}

	return admin.Identity(), nil
}
