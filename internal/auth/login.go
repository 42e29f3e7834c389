package auth

import (
	"context"
	"errors"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/geocoder89/authgate/internal/validation"
)

const (
	flowLoginUser  = "login_user"
	flowLoginAdmin = "login_admin"
)

func (s *Service) LoginUser(ctx context.Context, in Credentials) (Summary, error) {
	ctx, done := s.track(ctx, flowLoginUser)
	out, err := s.login(ctx, flowLoginUser, principal.KindUser, in)
	done(err)
	return out, err
}

func (s *Service) LoginAdmin(ctx context.Context, in Credentials) (Summary, error) {
	ctx, done := s.track(ctx, flowLoginAdmin)
	out, err := s.login(ctx, flowLoginAdmin, principal.KindAdmin, in)
	done(err)
	return out, err
}

func (s *Service) login(ctx context.Context, flow string, kind principal.Kind, in Credentials) (Summary, error) {
	if fields := missingFields(in); len(fields) > 0 {
		return Summary{}, missingFieldsError(msgLoginRequired, fields)
	}

	email := validation.NormalizeEmail(in.Email)
	if !validation.ValidEmail(email) {
		return Summary{}, newError(KindInvalidEmail, msgInvalidEmail)
	}

	ns := repo.For(s.store, kind)

	p, err := ns.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.log.InfoContext(ctx, "login failed", "flow", flow, "email", email, "reason", "unknown_email")
			return Summary{}, newError(KindInvalidCredentials, msgInvalidCredentials)
		}
		return Summary{}, s.unavailable(ctx, flow, msgServerError, err)
	}

	// admins learn they are deactivated before any password comparison
	if !p.Active() {
		s.log.WarnContext(ctx, "login by deactivated account", "flow", flow, "email", email)
		return Summary{}, newError(KindAccountDeactivated, msgDeactivated)
	}

	if !s.hasher.Verify(in.Password, p.PasswordHash) {
		s.log.InfoContext(ctx, "login failed", "flow", flow, "email", email, "reason", "bad_password")
		return Summary{}, newError(KindInvalidCredentials, msgInvalidCredentials)
	}

	at := s.now()
	if err := ns.TouchLastLogin(ctx, email, at); err != nil {
		return Summary{}, s.unavailable(ctx, flow, msgServerError, err)
	}
	p.LastLoginAt = &at

	s.log.InfoContext(ctx, "login succeeded", "flow", flow, "id", p.ID, "email", email)
	return summaryOf(p), nil
}
