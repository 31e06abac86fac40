package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

type Coupon struct {
	ID                string          `db:"id" json:"id"`
	Code              string          `db:"code" json:"code"`
	EventID           string          `db:"event_id" json:"event_id"`
	DiscountType      DiscountType    `db:"discount_type" json:"discount_type"`
	DiscountValue     decimal.Decimal `db:"discount_value" json:"discount_value"`
	MaxUsages         int             `db:"max_usages" json:"max_usages"`
	CurrentUsages     int             `db:"current_usages" json:"current_usages"`
	ExpiresAt         time.Time       `db:"expires_at" json:"expires_at"`
	MinPurchaseAmount decimal.Decimal `db:"min_purchase_amount" json:"min_purchase_amount"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Discount computes the reduction this coupon grants on amount. The final
// amount is never allowed below zero; callers use amount.Sub(discount)
// floored by FinalAmount.
func (c *Coupon) Discount(amount decimal.Decimal) decimal.Decimal {
	if c.DiscountType == DiscountPercentage {
		return amount.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
	}
	return c.DiscountValue
}

// FinalAmount floors amount minus discount at zero.
func FinalAmount(amount, discount decimal.Decimal) decimal.Decimal {
	final := amount.Sub(discount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}
