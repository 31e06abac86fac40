package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingFailed    BookingStatus = "FAILED"
)

// CanTransitionTo encodes the booking state machine. CANCELLED and FAILED
// are terminal; CONFIRMED may only move to CANCELLED.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled || next == BookingFailed
	case BookingConfirmed:
		return next == BookingCancelled
	default:
		return false
	}
}

type Booking struct {
	ID              string          `db:"id" json:"id"`
	EventID         string          `db:"event_id" json:"event_id"`
	UserID          string          `db:"user_id" json:"user_id,omitempty"`
	Quantity        int             `db:"quantity" json:"quantity"`
	Email           string          `db:"email" json:"email"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	FinalAmount     decimal.Decimal `db:"final_amount" json:"final_amount"`
	Discount        decimal.Decimal `db:"discount" json:"discount"`
	CouponCode      string          `db:"coupon_code" json:"coupon_code,omitempty"`
	PaymentIntentID string          `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	Status          BookingStatus   `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`

	Tickets []Ticket `db:"-" json:"tickets,omitempty"`
}
