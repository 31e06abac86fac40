package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/models"
)

const eventColumns = `id, name, description, venue, start_time, end_time,
	ticket_price, currency, capacity, available_seats, version, status,
	created_at, updated_at`

func (s *Store) InsertEvent(ctx context.Context, ex dbx.Builder, event *models.Event) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := ex.Insert("events", dbx.Params{
		"id":              event.ID,
		"name":            event.Name,
		"description":     event.Description,
		"venue":           event.Venue,
		"start_time":      event.StartTime,
		"end_time":        event.EndTime,
		"ticket_price":    event.TicketPrice,
		"currency":        event.Currency,
		"capacity":        event.Capacity,
		"available_seats": event.AvailableSeats,
		"version":         event.Version,
		"status":          event.Status,
		"created_at":      event.CreatedAt,
		"updated_at":      event.UpdatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, ex dbx.Builder, id string) (*models.Event, error) {
	var event models.Event
	err := ex.NewQuery("SELECT "+eventColumns+" FROM events WHERE id = {:id}").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		One(&event)
	if err != nil {
		if isNoRows(err) {
			return nil, status.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// GetEventForUpdate takes the exclusive row lock on an event. NOWAIT makes
// a contended caller fail with ErrRowLocked instead of queueing behind the
// holder.
func (s *Store) GetEventForUpdate(ctx context.Context, tx *dbx.Tx, id string) (*models.Event, error) {
	var event models.Event
	err := tx.NewQuery("SELECT "+eventColumns+" FROM events WHERE id = {:id} FOR UPDATE NOWAIT").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		One(&event)
	if err != nil {
		if isNoRows(err) {
			return nil, status.ErrEventNotFound
		}
		return nil, translateLockErr(err)
	}
	return &event, nil
}

// UpdateEventSeats persists a validated seat adjustment and bumps the
// version. Callers must hold the row lock taken by GetEventForUpdate.
func (s *Store) UpdateEventSeats(ctx context.Context, tx *dbx.Tx, id string, availableSeats int, version int64) error {
	_, err := tx.Update("events", dbx.Params{
		"available_seats": availableSeats,
		"version":         version,
		"updated_at":      time.Now().UTC(),
	}, dbx.HashExp{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("update event seats: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, ex dbx.Builder) ([]models.Event, error) {
	var events []models.Event
	err := ex.NewQuery("SELECT " + eventColumns + " FROM events ORDER BY start_time ASC").
		WithContext(ctx).
		All(&events)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
