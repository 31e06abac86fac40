package models

import "time"

type Ticket struct {
	ID           string     `db:"id" json:"id"`
	BookingID    string     `db:"booking_id" json:"booking_id"`
	TicketNumber string     `db:"ticket_number" json:"ticket_number"`
	QRCode       string     `db:"qr_code" json:"qr_code"`
	IsValidated  bool       `db:"is_validated" json:"is_validated"`
	ValidatedAt  *time.Time `db:"validated_at" json:"validated_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
