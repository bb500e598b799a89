package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iflyair/ifly-backend/internal/pkg/metrics"
	"github.com/iflyair/ifly-backend/internal/core/domain"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

// DedupChecker abstracts the idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, userID int64, event string, ts time.Time) (bool, error)
	Mark(ctx context.Context, userID int64, event string, ts time.Time) error
}

// notificationService writes outbound notifications as records of the
// "notifications" kind. Delivery is idempotent: a replayed input is detected
// through the dedup store and skipped without a second write.
type notificationService struct {
	store ports.Store
	dedup DedupChecker
	log   zerolog.Logger
}

// NewNotificationService returns a NotificationSink implementation.
func NewNotificationService(store ports.Store, dedup DedupChecker, log zerolog.Logger) ports.NotificationSink {
	return &notificationService{store: store, dedup: dedup, log: log}
}

// Deliver deduplicates and persists a single notification.
func (s *notificationService) Deliver(ctx context.Context, in ports.NotificationInput) error {
	isDup, err := s.dedup.IsDuplicate(ctx, in.UserID, in.Event, in.Timestamp)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", in.UserID).Msg("dedup check failed, delivering anyway")
	} else if isDup {
		metrics.NotificationsDedupTotal.WithLabelValues("hit").Inc()
		s.log.Debug().Int64("user_id", in.UserID).Str("event", in.Event).Msg("duplicate notification skipped")
		return nil
	}
	metrics.NotificationsDedupTotal.WithLabelValues("miss").Inc()

	// Mark before writing so a crash-and-retry cannot double-deliver.
	if markErr := s.dedup.Mark(ctx, in.UserID, in.Event, in.Timestamp); markErr != nil {
		s.log.Warn().Err(markErr).Int64("user_id", in.UserID).Msg("failed to set dedup key")
	}

	if _, err := s.store.Insert(ctx, "notifications", domain.Record{
		"user_id":    in.UserID,
		"event":      in.Event,
		"subject":    in.Subject,
		"body":       in.Body,
		"read":       false,
		"created_at": in.Timestamp.UTC(),
	}); err != nil {
		return err
	}

	metrics.NotificationsSentTotal.WithLabelValues(in.Event).Inc()
	s.log.Info().Int64("user_id", in.UserID).Str("event", in.Event).Msg("notification delivered")
	return nil
}
