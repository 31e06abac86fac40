package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentIntent struct {
	ID           string            `json:"payment_intent_id"`
	ClientSecret string            `json:"client_secret"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"` // pending, succeeded, refunded
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// BookingConfirmation is the payload handed to the notification dispatcher
// once a booking reaches CONFIRMED. Delivery is owned by a separate worker.
type BookingConfirmation struct {
	BookingID   string          `json:"booking_id"`
	Email       string          `json:"email"`
	EventName   string          `json:"event_name"`
	EventVenue  string          `json:"event_venue"`
	EventStart  time.Time       `json:"event_start"`
	Quantity    int             `json:"quantity"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	Tickets     []TicketStub    `json:"tickets"`
}

type TicketStub struct {
	TicketNumber string `json:"ticket_number"`
	QRCode       string `json:"qr_code"`
}
