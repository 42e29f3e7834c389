package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultStreamMaxLen = 10000

// StreamNotifier appends purge notices to a Redis stream so an external
// consumer can archive them. The stream is trimmed approximately to maxLen.
type StreamNotifier struct {
	rdb    redis.UniversalClient
	stream string
	maxLen int64
}

func NewStreamNotifier(rdb redis.UniversalClient, stream string, maxLen int64) *StreamNotifier {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &StreamNotifier{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (n *StreamNotifier) NotifyPurge(ctx context.Context, in PurgeNotice) error {
	err := n.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: true,
		Values: map[string]any{
			"event":          "purge_all",
			"actor_id":       in.ActorID,
			"actor_email":    in.ActorEmail,
			"actor_name":     in.ActorName,
			"users_deleted":  strconv.FormatInt(in.UsersDeleted, 10),
			"admins_deleted": strconv.FormatInt(in.AdminsDeleted, 10),
			"at":             in.At.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", n.stream, err)
	}
	return nil
}
