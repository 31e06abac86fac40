package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/models"
)

const couponColumns = `id, code, event_id, discount_type, discount_value,
	max_usages, current_usages, expires_at, min_purchase_amount, is_active,
	created_at, updated_at`

func (s *Store) InsertCoupon(ctx context.Context, ex dbx.Builder, coupon *models.Coupon) error {
	now := time.Now().UTC()
	coupon.Code = strings.ToUpper(coupon.Code)
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	_, err := ex.Insert("coupons", dbx.Params{
		"id":                  coupon.ID,
		"code":                coupon.Code,
		"event_id":            coupon.EventID,
		"discount_type":       string(coupon.DiscountType),
		"discount_value":      coupon.DiscountValue,
		"max_usages":          coupon.MaxUsages,
		"current_usages":      coupon.CurrentUsages,
		"expires_at":          coupon.ExpiresAt,
		"min_purchase_amount": coupon.MinPurchaseAmount,
		"is_active":           coupon.IsActive,
		"created_at":          coupon.CreatedAt,
		"updated_at":          coupon.UpdatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetCoupon finds a coupon by its upper-cased code within one event,
// regardless of active flag. Validity checks belong to the coupon service.
func (s *Store) GetCoupon(ctx context.Context, ex dbx.Builder, code, eventID string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := ex.NewQuery("SELECT "+couponColumns+" FROM coupons WHERE code = {:code} AND event_id = {:eventId}").
		Bind(dbx.Params{"code": strings.ToUpper(code), "eventId": eventID}).
		WithContext(ctx).
		One(&coupon)
	if err != nil {
		if isNoRows(err) {
			return nil, status.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return &coupon, nil
}

// IncrementCouponUsage bumps the durable usage count. The fast Redis counter
// is the contention guard; this write may lag it transiently.
func (s *Store) IncrementCouponUsage(ctx context.Context, ex dbx.Builder, id string) error {
	_, err := ex.NewQuery("UPDATE coupons SET current_usages = current_usages + 1, updated_at = {:now} WHERE id = {:id}").
		Bind(dbx.Params{"now": time.Now().UTC(), "id": id}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	return nil
}

// DecrementCouponUsage lowers the durable usage count, floored at zero.
func (s *Store) DecrementCouponUsage(ctx context.Context, ex dbx.Builder, id string) error {
	_, err := ex.NewQuery("UPDATE coupons SET current_usages = GREATEST(current_usages - 1, 0), updated_at = {:now} WHERE id = {:id}").
		Bind(dbx.Params{"now": time.Now().UTC(), "id": id}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("decrement coupon usage: %w", err)
	}
	return nil
}

func (s *Store) ListCouponsByEvent(ctx context.Context, ex dbx.Builder, eventID string) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := ex.NewQuery("SELECT "+couponColumns+" FROM coupons WHERE event_id = {:eventId} ORDER BY created_at DESC").
		Bind(dbx.Params{"eventId": eventID}).
		WithContext(ctx).
		All(&coupons)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}
