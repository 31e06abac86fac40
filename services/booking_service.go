package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/models"
	"github.com/TrongtrongJ/eventeer/monitoring"
	"github.com/TrongtrongJ/eventeer/utils"
)

// BookingStore is the durable surface the orchestrator consumes.
type BookingStore interface {
	RunInTx(ctx context.Context, fn func(tx *dbx.Tx) error) error
	DB() dbx.Builder
	GetEvent(ctx context.Context, ex dbx.Builder, id string) (*models.Event, error)
	InsertBooking(ctx context.Context, ex dbx.Builder, booking *models.Booking) error
	GetBooking(ctx context.Context, ex dbx.Builder, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, ex dbx.Builder, id string, bookingStatus models.BookingStatus) error
	SetBookingPaymentIntent(ctx context.Context, ex dbx.Builder, id, paymentIntentID string) error
	InsertTickets(ctx context.Context, ex dbx.Builder, tickets []models.Ticket) error
	ListTicketsByBooking(ctx context.Context, ex dbx.Builder, bookingID string) ([]models.Ticket, error)
	ListBookingsByUser(ctx context.Context, ex dbx.Builder, userID string) ([]models.Booking, error)
	ListBookingsByEvent(ctx context.Context, ex dbx.Builder, eventID string) ([]models.Booking, error)
}

// BookingService orchestrates the booking saga: reserve seats, apply the
// coupon, persist booking and tickets atomically, then request payment
// outside that transaction with full compensation on failure.
type BookingService struct {
	store     BookingStore
	inventory *InventoryService
	coupons   *CouponService
	payments  *PaymentService
	notifier  Notifier
}

func NewBookingService(st BookingStore, inventory *InventoryService, coupons *CouponService, payments *PaymentService, notifier Notifier) *BookingService {
	return &BookingService{
		store:     st,
		inventory: inventory,
		coupons:   coupons,
		payments:  payments,
		notifier:  notifier,
	}
}

type CreateBookingRequest struct {
	EventID    string
	UserID     string
	Email      string
	Quantity   int
	CouponCode string
}

type CreateBookingResult struct {
	Booking      *models.Booking
	ClientSecret string
}

// compensation is one undo step; steps are pushed as the saga progresses and
// unwound in reverse so rollback logic is not duplicated per failure site.
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

func unwind(ctx context.Context, compensations []compensation) {
	for i := len(compensations) - 1; i >= 0; i-- {
		c := compensations[i]
		if err := c.run(ctx); err != nil {
			slog.Error("Compensation step failed",
				"step", c.name,
				"error", err,
			)
		}
	}
}

// Create runs the booking saga. Seat and coupon failures abort before any
// persistence; a payment-step failure restores seats and coupon usage before
// propagating, so callers never observe a booking holding seats without a
// live payment attempt.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	event, err := s.store.GetEvent(ctx, s.store.DB(), req.EventID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > event.AvailableSeats {
		monitoring.TrackBookingOperation("create", req.EventID, "exhausted")
		return nil, status.ErrInventoryExhausted
	}

	slog.Info("Creating booking",
		"event_id", req.EventID,
		"quantity", req.Quantity,
		"user_id", req.UserID,
	)

	totalAmount := event.TicketPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
	finalAmount := totalAmount
	discount := decimal.Zero
	couponCode := ""

	var booking *models.Booking
	var compensations []compensation

	txErr := s.store.RunInTx(ctx, func(tx *dbx.Tx) error {
		if _, err := s.inventory.AdjustSeats(ctx, tx, req.EventID, -req.Quantity); err != nil {
			return err
		}
		compensations = append(compensations, compensation{
			name: "restore seats",
			run: func(ctx context.Context) error {
				return s.restoreSeats(ctx, req.EventID, req.Quantity)
			},
		})

		if req.CouponCode != "" {
			redemption, err := s.coupons.Apply(ctx, req.CouponCode, req.EventID, totalAmount)
			switch {
			case errors.Is(err, status.ErrResourceBusy):
				// An unusable coupon never blocks the booking.
				slog.Warn("Coupon busy, proceeding without discount",
					"code", req.CouponCode,
					"event_id", req.EventID,
				)
			case err != nil:
				return err
			case !redemption.Valid:
				slog.Warn("Invalid coupon, proceeding without discount",
					"code", req.CouponCode,
					"event_id", req.EventID,
				)
			default:
				discount = redemption.Discount
				finalAmount = redemption.FinalAmount
				couponCode = strings.ToUpper(req.CouponCode)
				compensations = append(compensations, compensation{
					name: "revert coupon",
					run: func(ctx context.Context) error {
						return s.coupons.Revert(ctx, couponCode, req.EventID)
					},
				})
			}
		}

		booking = &models.Booking{
			ID:          uuid.NewString(),
			EventID:     req.EventID,
			UserID:      req.UserID,
			Quantity:    req.Quantity,
			Email:       req.Email,
			TotalAmount: totalAmount,
			FinalAmount: finalAmount,
			Discount:    discount,
			CouponCode:  couponCode,
			Status:      models.BookingPending,
		}
		if err := s.store.InsertBooking(ctx, tx, booking); err != nil {
			return err
		}

		tickets := make([]models.Ticket, 0, req.Quantity)
		for i := 0; i < req.Quantity; i++ {
			number, err := utils.GenerateTicketNumber()
			if err != nil {
				return err
			}
			tickets = append(tickets, models.Ticket{
				ID:           uuid.NewString(),
				BookingID:    booking.ID,
				TicketNumber: number,
				QRCode:       utils.GenerateQRFingerprint(booking.ID, number),
			})
		}
		if err := s.store.InsertTickets(ctx, tx, tickets); err != nil {
			return err
		}
		booking.Tickets = tickets
		return nil
	})
	if txErr != nil {
		// The transaction rolled back the seat and row writes itself, but
		// coupon counters live outside it and must be compensated explicitly.
		if couponCode != "" {
			if err := s.coupons.Revert(ctx, couponCode, req.EventID); err != nil {
				slog.Error("Failed to revert coupon after transaction rollback",
					"code", couponCode,
					"error", err,
				)
			}
		}
		monitoring.TrackBookingOperation("create", req.EventID, "failed")
		return nil, txErr
	}

	compensations = append(compensations, compensation{
		name: "mark booking failed",
		run: func(ctx context.Context) error {
			return s.store.UpdateBookingStatus(ctx, s.store.DB(), booking.ID, models.BookingFailed)
		},
	})

	// Payment runs outside the local transaction; a true distributed
	// transaction with the provider is unavailable, so this is local commit
	// followed by a best-effort external call with compensation.
	intent, err := s.payments.CreatePaymentIntent(ctx, finalAmount, event.Currency, map[string]string{
		"booking_id": booking.ID,
		"event_id":   event.ID,
		"email":      req.Email,
		"user_id":    req.UserID,
	})
	if err != nil {
		slog.Error("Payment intent creation failed, compensating",
			"booking_id", booking.ID,
			"error", err,
		)
		unwind(ctx, compensations)
		monitoring.TrackBookingOperation("create", req.EventID, "payment_failed")
		return nil, err
	}

	booking.PaymentIntentID = intent.ID
	if err := s.store.SetBookingPaymentIntent(ctx, s.store.DB(), booking.ID, intent.ID); err != nil {
		return nil, err
	}

	slog.Info("Booking created with payment intent",
		"booking_id", booking.ID,
		"payment_intent_id", intent.ID,
	)
	monitoring.TrackBookingOperation("create", req.EventID, "success")

	return &CreateBookingResult{Booking: booking, ClientSecret: intent.ClientSecret}, nil
}

// Confirm transitions a booking to CONFIRMED once its payment is settled.
// Confirming an already confirmed booking returns the current state without
// a second payment check.
func (s *BookingService) Confirm(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == models.BookingConfirmed {
		return booking, nil
	}
	if !booking.Status.CanTransitionTo(models.BookingConfirmed) {
		return nil, fmt.Errorf("booking %s cannot be confirmed from status %s", bookingID, booking.Status)
	}
	if booking.PaymentIntentID == "" {
		return nil, status.ErrPaymentNotConfirmed
	}

	confirmed, err := s.payments.ConfirmPayment(ctx, booking.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrPaymentNotConfirmed, err)
	}
	if !confirmed {
		return nil, status.ErrPaymentNotConfirmed
	}

	if err := s.store.UpdateBookingStatus(ctx, s.store.DB(), bookingID, models.BookingConfirmed); err != nil {
		return nil, err
	}
	booking.Status = models.BookingConfirmed

	slog.Info("Booking confirmed", "booking_id", bookingID)
	monitoring.TrackBookingOperation("confirm", booking.EventID, "success")

	// Notification delivery belongs to its own subsystem; failure here never
	// rolls back the confirmation.
	if s.notifier != nil {
		event, err := s.store.GetEvent(ctx, s.store.DB(), booking.EventID)
		if err == nil {
			stubs := make([]models.TicketStub, 0, len(booking.Tickets))
			for _, t := range booking.Tickets {
				stubs = append(stubs, models.TicketStub{TicketNumber: t.TicketNumber, QRCode: t.QRCode})
			}
			s.notifier.EnqueueBookingConfirmation(ctx, models.BookingConfirmation{
				BookingID:   booking.ID,
				Email:       booking.Email,
				EventName:   event.Name,
				EventVenue:  event.Venue,
				EventStart:  event.StartTime,
				Quantity:    booking.Quantity,
				FinalAmount: booking.FinalAmount,
				Tickets:     stubs,
			})
		}
	}

	return booking, nil
}

// Cancel restores seats and coupon usage and transitions to CANCELLED.
// Cancelling an already cancelled booking is a no-op; a FAILED booking is
// terminal and cannot be cancelled. A booking that was confirmed gets a
// refund request first; a failed refund is surfaced in the logs but does
// not block restoration.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) error {
	booking, err := s.store.GetBooking(ctx, s.store.DB(), bookingID)
	if err != nil {
		return err
	}

	if booking.Status == models.BookingCancelled {
		return nil
	}
	// A FAILED booking already had its seats and coupon usage restored by
	// the compensation steps; restoring again would overcount availability.
	if !booking.Status.CanTransitionTo(models.BookingCancelled) {
		return fmt.Errorf("booking %s cannot be cancelled from status %s", bookingID, booking.Status)
	}

	if booking.Status == models.BookingConfirmed && booking.PaymentIntentID != "" {
		refunded, err := s.payments.Refund(ctx, booking.PaymentIntentID, booking.FinalAmount)
		if err != nil || !refunded {
			slog.Error("Refund failed during cancellation",
				"booking_id", bookingID,
				"payment_intent_id", booking.PaymentIntentID,
				"refunded", refunded,
				"error", err,
			)
		}
	}

	if err := s.restoreSeats(ctx, booking.EventID, booking.Quantity); err != nil {
		return err
	}

	if booking.CouponCode != "" {
		if err := s.coupons.Revert(ctx, booking.CouponCode, booking.EventID); err != nil {
			return err
		}
	}

	if err := s.store.UpdateBookingStatus(ctx, s.store.DB(), bookingID, models.BookingCancelled); err != nil {
		return err
	}

	slog.Info("Booking cancelled", "booking_id", bookingID)
	monitoring.TrackBookingOperation("cancel", booking.EventID, "success")
	return nil
}

// Get loads a booking with its tickets.
func (s *BookingService) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, s.store.DB(), bookingID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.ListTicketsByBooking(ctx, s.store.DB(), bookingID)
	if err != nil {
		return nil, err
	}
	booking.Tickets = tickets
	return booking, nil
}

func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.store.ListBookingsByUser(ctx, s.store.DB(), userID)
}

func (s *BookingService) ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error) {
	return s.store.ListBookingsByEvent(ctx, s.store.DB(), eventID)
}

func (s *BookingService) restoreSeats(ctx context.Context, eventID string, quantity int) error {
	return s.store.RunInTx(ctx, func(tx *dbx.Tx) error {
		_, err := s.inventory.AdjustSeats(ctx, tx, eventID, quantity)
		return err
	})
}
