package ports

import (
	"context"
	"time"
)

// NotificationInput is a single outbound notification to a user.
type NotificationInput struct {
	UserID    int64
	Event     string
	Subject   string
	Body      string
	Timestamp time.Time
}

// NotificationSink delivers one notification. Delivery must be idempotent:
// replaying the same input produces no second notification.
type NotificationSink interface {
	Deliver(ctx context.Context, in NotificationInput) error
}

// Notifier is the enqueue side used by request handlers and custom actions.
// Enqueue never blocks the caller on delivery.
type Notifier interface {
	Enqueue(in NotificationInput)
}
