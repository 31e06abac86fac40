package services

import (
	"context"
	"log/slog"

	"github.com/pocketbase/dbx"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/models"
	"github.com/TrongtrongJ/eventeer/monitoring"
)

// EventLedgerStore is the slice of the durable store the ledger needs: a
// locked read and the follow-up write, both inside the caller's transaction.
type EventLedgerStore interface {
	GetEventForUpdate(ctx context.Context, tx *dbx.Tx, id string) (*models.Event, error)
	UpdateEventSeats(ctx context.Context, tx *dbx.Tx, id string, availableSeats int, version int64) error
}

// InventoryService serializes capacity-bounded adjustments to one event's
// available-seat counter. Adjustments run under an exclusive row lock held
// for a minimal read-validate-write section, inside the caller's durable
// transaction.
type InventoryService struct {
	store       EventLedgerStore
	broadcaster Broadcaster
}

func NewInventoryService(st EventLedgerStore, broadcaster Broadcaster) *InventoryService {
	return &InventoryService{store: st, broadcaster: broadcaster}
}

// AdjustSeats applies delta (negative to reserve, positive to release) to the
// event's available seats and returns the new value. It must be called inside
// the same transaction as the booking rows it accounts for, so a crash cannot
// leave seats decremented with no corresponding booking.
func (s *InventoryService) AdjustSeats(ctx context.Context, tx *dbx.Tx, eventID string, delta int) (int, error) {
	event, err := s.store.GetEventForUpdate(ctx, tx, eventID)
	if err != nil {
		return 0, err
	}

	newAvailable := event.AvailableSeats + delta
	if newAvailable < 0 {
		monitoring.TrackSeatAdjustment(eventID, "exhausted")
		return 0, status.ErrInventoryExhausted
	}
	if newAvailable > event.Capacity {
		// A release larger than what was reserved points at a double-release bug.
		monitoring.TrackSeatAdjustment(eventID, "overflow")
		return 0, status.ErrInventoryOverflow
	}

	if err := s.store.UpdateEventSeats(ctx, tx, eventID, newAvailable, event.Version+1); err != nil {
		return 0, err
	}

	slog.Info("Seat availability updated",
		"event_id", eventID,
		"delta", delta,
		"available_seats", newAvailable,
	)
	monitoring.TrackSeatAdjustment(eventID, "success")

	// Realtime emit is fire-and-forget and carries no atomicity with the
	// transaction; the next adjustment corrects any stale publish.
	if s.broadcaster != nil {
		go s.broadcaster.PublishSeatChange(models.SeatChange{
			EventID:        eventID,
			AvailableSeats: newAvailable,
			Capacity:       event.Capacity,
		})
	}

	return newAvailable, nil
}
