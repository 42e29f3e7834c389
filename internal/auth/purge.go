package auth

import (
	"context"
	"time"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/notifications"
)

const flowPurge = "purge_all"

type NamespaceCounts struct {
	Users  int64 `json:"users"`
	Admins int64 `json:"admins"`
}

type Actor struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type PurgeReport struct {
	Deleted        NamespaceCounts `json:"deleted"`
	PreviousCounts NamespaceCounts `json:"previousCounts"`
	DeletedBy      Actor           `json:"deletedBy"`
	Timestamp      time.Time       `json:"timestamp"`
}

// PurgeAll deletes every user and admin. actor must come from a successful
// AuthorizeAdmin; an identity without the delete permission is refused.
func (s *Service) PurgeAll(ctx context.Context, actor principal.Identity) (PurgeReport, error) {
	ctx, done := s.track(ctx, flowPurge)
	report, err := s.purge(ctx, actor)
	done(err)
	return report, err
}

// AuthorizeAndPurge runs the gate and, only if it passes, the purge.
func (s *Service) AuthorizeAndPurge(ctx context.Context, in GateRequest) (PurgeReport, error) {
	actor, err := s.AuthorizeAdmin(ctx, in)
	if err != nil {
		return PurgeReport{}, err
	}
	return s.PurgeAll(ctx, actor)
}

func (s *Service) purge(ctx context.Context, actor principal.Identity) (PurgeReport, error) {
	if actor.ID == "" || !actor.HasPermission(principal.PermDelete) {
		return PurgeReport{}, newError(KindInsufficientPermission, msgGateNoDelete)
	}

	counts, err := s.store.Purge(ctx)
	if err != nil {
		return PurgeReport{}, s.unavailable(ctx, flowPurge, msgPurgeServerError, err)
	}

	at := s.now()

	// commit point: the store has confirmed both deletions
	s.log.ErrorContext(ctx, "[CRITICAL] all records deleted",
		"audit", true,
		"actor_id", actor.ID,
		"actor_email", actor.Email,
		"users_before", counts.UsersBefore,
		"admins_before", counts.AdminsBefore,
		"users_deleted", counts.UsersDeleted,
		"admins_deleted", counts.AdminsDeleted,
	)
	s.metrics.ObservePurge(counts.UsersDeleted, counts.AdminsDeleted)

	if s.notifier != nil {
		err := s.notifier.NotifyPurge(ctx, notifications.PurgeNotice{
			ActorID:       actor.ID,
			ActorEmail:    actor.Email,
			ActorName:     actor.Name,
			UsersDeleted:  counts.UsersDeleted,
			AdminsDeleted: counts.AdminsDeleted,
			At:            at,
		})
		if err != nil {
			s.log.WarnContext(ctx, "purge audit notification failed", "err", err)
		}
	}

	return PurgeReport{
		Deleted:        NamespaceCounts{Users: counts.UsersDeleted, Admins: counts.AdminsDeleted},
		PreviousCounts: NamespaceCounts{Users: counts.UsersBefore, Admins: counts.AdminsBefore},
		DeletedBy:      Actor{Email: actor.Email, Name: actor.Name},
		Timestamp:      at,
	}, nil
}
