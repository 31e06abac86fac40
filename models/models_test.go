package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	cases := []struct {
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingFailed, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingPending, false},
		{BookingConfirmed, BookingFailed, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCancelled, BookingPending, false},
		{BookingFailed, BookingConfirmed, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestCouponDiscountPercentage(t *testing.T) {
	coupon := &Coupon{
		DiscountType:  DiscountPercentage,
		DiscountValue: decimal.NewFromInt(20),
	}

	amount := decimal.NewFromInt(100)
	discount := coupon.Discount(amount)

	assert.True(t, discount.Equal(decimal.NewFromInt(20)), "discount = %s", discount)
	assert.True(t, FinalAmount(amount, discount).Equal(decimal.NewFromInt(80)))
}

func TestCouponDiscountFixed(t *testing.T) {
	coupon := &Coupon{
		DiscountType:  DiscountFixed,
		DiscountValue: decimal.NewFromInt(15),
	}

	amount := decimal.NewFromInt(100)
	discount := coupon.Discount(amount)

	assert.True(t, discount.Equal(decimal.NewFromInt(15)))
	assert.True(t, FinalAmount(amount, discount).Equal(decimal.NewFromInt(85)))
}

func TestFinalAmountNeverNegative(t *testing.T) {
	coupon := &Coupon{
		DiscountType:  DiscountFixed,
		DiscountValue: decimal.NewFromInt(50),
	}

	amount := decimal.NewFromInt(30)
	discount := coupon.Discount(amount)

	assert.True(t, FinalAmount(amount, discount).Equal(decimal.Zero))
}
