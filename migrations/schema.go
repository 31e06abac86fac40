// Package migrations holds the schema for the booking core and applies it
// idempotently at startup.
package migrations

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		venue           TEXT NOT NULL DEFAULT '',
		start_time      TIMESTAMPTZ NOT NULL,
		end_time        TIMESTAMPTZ NOT NULL,
		ticket_price    NUMERIC(12,2) NOT NULL DEFAULT 0,
		currency        TEXT NOT NULL DEFAULT 'usd',
		capacity        INTEGER NOT NULL CHECK (capacity >= 0),
		available_seats INTEGER NOT NULL CHECK (available_seats >= 0 AND available_seats <= capacity),
		version         BIGINT NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'upcoming',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                TEXT PRIMARY KEY,
		event_id          TEXT NOT NULL REFERENCES events(id),
		user_id           TEXT NOT NULL DEFAULT '',
		quantity          INTEGER NOT NULL CHECK (quantity > 0),
		email             TEXT NOT NULL DEFAULT '',
		total_amount      NUMERIC(12,2) NOT NULL DEFAULT 0,
		final_amount      NUMERIC(12,2) NOT NULL DEFAULT 0,
		discount          NUMERIC(12,2) NOT NULL DEFAULT 0,
		coupon_code       TEXT NOT NULL DEFAULT '',
		payment_intent_id TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL DEFAULT 'PENDING',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_event ON bookings(event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id            TEXT PRIMARY KEY,
		booking_id    TEXT NOT NULL REFERENCES bookings(id),
		ticket_number TEXT NOT NULL UNIQUE,
		qr_code       TEXT NOT NULL UNIQUE,
		is_validated  BOOLEAN NOT NULL DEFAULT FALSE,
		validated_at  TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_booking ON tickets(booking_id)`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id                  TEXT PRIMARY KEY,
		code                TEXT NOT NULL,
		event_id            TEXT NOT NULL REFERENCES events(id),
		discount_type       TEXT NOT NULL,
		discount_value      NUMERIC(12,2) NOT NULL DEFAULT 0,
		max_usages          INTEGER NOT NULL DEFAULT 1,
		current_usages      INTEGER NOT NULL DEFAULT 0 CHECK (current_usages >= 0),
		expires_at          TIMESTAMPTZ NOT NULL,
		min_purchase_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_active           BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (code, event_id)
	)`,
}

func Apply(ctx context.Context, db *dbx.DB) error {
	for _, stmt := range schema {
		if _, err := db.NewQuery(stmt).WithContext(ctx).Execute(); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
