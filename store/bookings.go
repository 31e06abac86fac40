package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/models"
)

const bookingColumns = `id, event_id, user_id, quantity, email, total_amount,
	final_amount, discount, coupon_code, payment_intent_id, status,
	created_at, updated_at`

func (s *Store) InsertBooking(ctx context.Context, ex dbx.Builder, booking *models.Booking) error {
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	_, err := ex.Insert("bookings", dbx.Params{
		"id":                booking.ID,
		"event_id":          booking.EventID,
		"user_id":           booking.UserID,
		"quantity":          booking.Quantity,
		"email":             booking.Email,
		"total_amount":      booking.TotalAmount,
		"final_amount":      booking.FinalAmount,
		"discount":          booking.Discount,
		"coupon_code":       booking.CouponCode,
		"payment_intent_id": booking.PaymentIntentID,
		"status":            string(booking.Status),
		"created_at":        booking.CreatedAt,
		"updated_at":        booking.UpdatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, ex dbx.Builder, id string) (*models.Booking, error) {
	var booking models.Booking
	err := ex.NewQuery("SELECT "+bookingColumns+" FROM bookings WHERE id = {:id}").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		One(&booking)
	if err != nil {
		if isNoRows(err) {
			return nil, status.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, ex dbx.Builder, id string, bookingStatus models.BookingStatus) error {
	_, err := ex.Update("bookings", dbx.Params{
		"status":     string(bookingStatus),
		"updated_at": time.Now().UTC(),
	}, dbx.HashExp{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

func (s *Store) SetBookingPaymentIntent(ctx context.Context, ex dbx.Builder, id, paymentIntentID string) error {
	_, err := ex.Update("bookings", dbx.Params{
		"payment_intent_id": paymentIntentID,
		"updated_at":        time.Now().UTC(),
	}, dbx.HashExp{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("set booking payment intent: %w", err)
	}
	return nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, ex dbx.Builder, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := ex.NewQuery("SELECT "+bookingColumns+" FROM bookings WHERE user_id = {:userId} ORDER BY created_at DESC").
		Bind(dbx.Params{"userId": userID}).
		WithContext(ctx).
		All(&bookings)
	if err != nil {
		return nil, fmt.Errorf("list bookings by user: %w", err)
	}
	return bookings, nil
}

func (s *Store) ListBookingsByEvent(ctx context.Context, ex dbx.Builder, eventID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := ex.NewQuery("SELECT "+bookingColumns+" FROM bookings WHERE event_id = {:eventId} ORDER BY created_at DESC").
		Bind(dbx.Params{"eventId": eventID}).
		WithContext(ctx).
		All(&bookings)
	if err != nil {
		return nil, fmt.Errorf("list bookings by event: %w", err)
	}
	return bookings, nil
}
