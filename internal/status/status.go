package status

import "errors"

var (
	ErrInventoryExhausted  = errors.New("inventory: insufficient available seats")
	ErrInventoryOverflow   = errors.New("inventory: available seats cannot exceed capacity")
	ErrResourceBusy        = errors.New("coupon: resource busy, lock contention")
	ErrPaymentInitFailed   = errors.New("payment: failed to initialize payment")
	ErrPaymentNotConfirmed = errors.New("payment: payment not confirmed")
	ErrCircuitOpen         = errors.New("circuit breaker: circuit is open")
	ErrEventNotFound       = errors.New("event: event not found")
	ErrBookingNotFound     = errors.New("booking: booking not found")
	ErrCouponNotFound      = errors.New("coupon: coupon not found")
	ErrCouponExists        = errors.New("coupon: code already exists for this event")
	ErrRowLocked           = errors.New("store: row is locked by another transaction")
)
