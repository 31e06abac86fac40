package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/TrongtrongJ/eventeer/models"
)

func (s *Store) InsertTickets(ctx context.Context, ex dbx.Builder, tickets []models.Ticket) error {
	now := time.Now().UTC()
	for i := range tickets {
		tickets[i].CreatedAt = now
		_, err := ex.Insert("tickets", dbx.Params{
			"id":            tickets[i].ID,
			"booking_id":    tickets[i].BookingID,
			"ticket_number": tickets[i].TicketNumber,
			"qr_code":       tickets[i].QRCode,
			"is_validated":  tickets[i].IsValidated,
			"validated_at":  tickets[i].ValidatedAt,
			"created_at":    tickets[i].CreatedAt,
		}).WithContext(ctx).Execute()
		if err != nil {
			return fmt.Errorf("insert ticket %s: %w", tickets[i].TicketNumber, err)
		}
	}
	return nil
}

func (s *Store) ListTicketsByBooking(ctx context.Context, ex dbx.Builder, bookingID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := ex.NewQuery("SELECT id, booking_id, ticket_number, qr_code, is_validated, validated_at, created_at FROM tickets WHERE booking_id = {:bookingId} ORDER BY ticket_number").
		Bind(dbx.Params{"bookingId": bookingID}).
		WithContext(ctx).
		All(&tickets)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// MarkTicketValidated flips a ticket to validated exactly once; a second
// call reports no rows affected via the returned bool.
func (s *Store) MarkTicketValidated(ctx context.Context, ex dbx.Builder, qrCode string) (bool, error) {
	res, err := ex.NewQuery("UPDATE tickets SET is_validated = TRUE, validated_at = {:now} WHERE qr_code = {:qr} AND is_validated = FALSE").
		Bind(dbx.Params{"now": time.Now().UTC(), "qr": qrCode}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return false, fmt.Errorf("validate ticket: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
