package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/TrongtrongJ/eventeer/models"
)

const confirmationQueueKey = "notifications:booking_confirmations"

// Notifier hands booking confirmations to the delivery subsystem.
type Notifier interface {
	EnqueueBookingConfirmation(ctx context.Context, confirmation models.BookingConfirmation)
}

// NotifyService enqueues notification jobs onto a Redis list consumed by a
// separate mail worker. Enqueue is fire-and-forget: failures are logged and
// the worker's own retry loop owns delivery.
type NotifyService struct {
	redis *redis.Client
}

func NewNotifyService(redisClient *redis.Client) *NotifyService {
	return &NotifyService{redis: redisClient}
}

func (s *NotifyService) EnqueueBookingConfirmation(ctx context.Context, confirmation models.BookingConfirmation) {
	data, err := json.Marshal(confirmation)
	if err != nil {
		slog.Error("Failed to marshal booking confirmation",
			"booking_id", confirmation.BookingID,
			"error", err,
		)
		return
	}

	if err := s.redis.LPush(ctx, confirmationQueueKey, data).Err(); err != nil {
		slog.Error("Failed to enqueue booking confirmation",
			"booking_id", confirmation.BookingID,
			"error", err,
		)
		return
	}

	slog.Info("Booking confirmation queued",
		"booking_id", confirmation.BookingID,
		"email", confirmation.Email,
	)
}
