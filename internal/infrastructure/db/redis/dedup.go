package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// NotificationDedup provides idempotency checks for outbound notifications.
// Key format: notify:<user_id>:<event>:<unix_timestamp>
type NotificationDedup struct {
	client *redis.Client
}

// NewNotificationDedup creates a NotificationDedup wrapping the given client.
func NewNotificationDedup(client *redis.Client) *NotificationDedup {
	return &NotificationDedup{client: client}
}

// IsDuplicate reports whether this exact notification has already been delivered.
func (d *NotificationDedup) IsDuplicate(ctx context.Context, userID int64, event string, ts time.Time) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(userID, event, ts)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this notification has been delivered (expires after dedupTTL).
func (d *NotificationDedup) Mark(ctx context.Context, userID int64, event string, ts time.Time) error {
	return d.client.Set(ctx, d.key(userID, event, ts), "1", dedupTTL).Err()
}

func (d *NotificationDedup) key(userID int64, event string, ts time.Time) string {
	return fmt.Sprintf("notify:%d:%s:%d", userID, event, ts.Unix())
}
