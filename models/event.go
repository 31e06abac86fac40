package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Description    string          `db:"description" json:"description"`
	Venue          string          `db:"venue" json:"venue"`
	StartTime      time.Time       `db:"start_time" json:"start_time"`
	EndTime        time.Time       `db:"end_time" json:"end_time"`
	TicketPrice    decimal.Decimal `db:"ticket_price" json:"ticket_price"`
	Currency       string          `db:"currency" json:"currency"`
	Capacity       int             `db:"capacity" json:"capacity"`
	AvailableSeats int             `db:"available_seats" json:"available_seats"`
	Version        int64           `db:"version" json:"version"`
	Status         string          `db:"status" json:"status"` // upcoming, ongoing, completed
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// SeatChange is the realtime payload published whenever availability moves.
type SeatChange struct {
	EventID        string    `json:"event_id"`
	AvailableSeats int       `json:"available_seats"`
	Capacity       int       `json:"capacity"`
	Timestamp      time.Time `json:"timestamp"`
}
