package notifications

import (
	"context"
	"time"
)

// PurgeNotice describes a completed bulk delete.
type PurgeNotice struct {
	ActorID       string
	ActorEmail    string
	ActorName     string
	UsersDeleted  int64
	AdminsDeleted int64
	At            time.Time
}

// AuditNotifier receives destructive-operation notices. Delivery is best
// effort; callers log and continue when it fails.
type AuditNotifier interface {
	NotifyPurge(ctx context.Context, notice PurgeNotice) error
}
