package auth

import (
	"context"
	"errors"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/geocoder89/authgate/internal/security"
	"github.com/geocoder89/authgate/internal/validation"
)

const (
	flowRegisterUser  = "register_user"
	flowRegisterAdmin = "register_admin"
)

func (s *Service) RegisterUser(ctx context.Context, in Registration) (Summary, error) {
	ctx, done := s.track(ctx, flowRegisterUser)
	out, err := s.registerUser(ctx, in)
	done(err)
	return out, err
}

func (s *Service) RegisterAdmin(ctx context.Context, in AdminRegistration) (Summary, error) {
	ctx, done := s.track(ctx, flowRegisterAdmin)
	out, err := s.registerAdmin(ctx, in)
	done(err)
	return out, err
}

func (s *Service) registerUser(ctx context.Context, in Registration) (Summary, error) {
	if fields := missingFields(in); len(fields) > 0 {
		return Summary{}, missingFieldsError(msgUserRegisterRequired, fields)
	}

	p, err := s.newPrincipal(in)
	if err != nil {
		return Summary{}, err
	}
	p.Kind = principal.KindUser

	return s.persist(ctx, flowRegisterUser, in.Password, p)
}

func (s *Service) registerAdmin(ctx context.Context, in AdminRegistration) (Summary, error) {
	if fields := missingFields(in); len(fields) > 0 {
		return Summary{}, missingFieldsError(msgAdminRegisterRequired, fields)
	}

	p, err := s.newPrincipal(in.Registration)
	if err != nil {
		return Summary{}, err
	}

	// secret comes after password strength and before uniqueness
	if !security.SecretsEqual(in.SecretKey, s.adminSecret) {
		s.log.WarnContext(ctx, "admin registration with invalid secret", "email", p.Email)
		return Summary{}, newError(KindInvalidSecret, msgInvalidSecret)
	}

	p.Kind = principal.KindAdmin
	p.Role = principal.RoleAdmin
	p.Permissions = principal.DefaultAdminPermissions()
	p.IsActive = true

	return s.persist(ctx, flowRegisterAdmin, in.Password, p)
}

// newPrincipal runs the shared field checks in order: email, name, password.
func (s *Service) newPrincipal(in Registration) (principal.Principal, error) {
	email := validation.NormalizeEmail(in.Email)
	name := validation.Sanitize(in.Name)

	if !validation.ValidEmail(email) {
		return principal.Principal{}, newError(KindInvalidEmail, msgInvalidEmail)
	}
	if !validation.ValidName(name) {
		return principal.Principal{}, newError(KindInvalidName, msgInvalidName)
	}
	if check := validation.CheckPassword(in.Password); !check.Valid {
		return principal.Principal{}, weakPasswordError(check)
	}

	return principal.Principal{Email: email, Name: name}, nil
}

// persist hashes once and inserts. A duplicate email is reported by the
// store itself, so two concurrent registrations cannot both succeed.
func (s *Service) persist(ctx context.Context, flow, password string, p principal.Principal) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, storeError(msgServerError, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.ErrorContext(ctx, "password hashing failed", "flow", flow, "err", err)
		return Summary{}, internalError(msgServerError, err)
	}
	p.PasswordHash = hash

	created, err := repo.For(s.store, p.Kind).Create(ctx, p)
	if err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			s.log.InfoContext(ctx, "registration rejected, email taken", "flow", flow, "email", p.Email)
			return Summary{}, &Error{Kind: KindEmailTaken, Message: msgEmailTaken, Err: err}
		}
		return Summary{}, s.unavailable(ctx, flow, msgServerError, err)
	}

	s.log.InfoContext(ctx, "principal registered", "flow", flow, "id", created.ID, "email", created.Email)
	return summaryOf(created), nil
}
