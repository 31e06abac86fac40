package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbase/dbx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/models"
	"github.com/TrongtrongJ/eventeer/monitoring"
)

const (
	couponLockPrefix  = "coupon:lock:"
	couponUsagePrefix = "coupon:usage:"
	couponUsageTTL    = 30 * 24 * time.Hour
	lockRetryBase     = 100 * time.Millisecond
)

// releaseLockScript deletes the lock key only when the stored token matches,
// so a holder whose lease expired cannot clobber a lock someone else has
// since acquired.
var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// decrFloorScript decrements the fast usage counter without going below zero.
var decrFloorScript = redis.NewScript(`
local current = tonumber(redis.call("get", KEYS[1]))
if current and current > 0 then
	return redis.call("decr", KEYS[1])
end
return 0
`)

// Redemption is the structured outcome of a coupon application. An unusable
// coupon is a normal business result, not an error.
type Redemption struct {
	Valid       bool
	Discount    decimal.Decimal
	FinalAmount decimal.Decimal
	Coupon      *models.Coupon
}

// CouponStore is the durable coupon surface the redemption manager consumes.
type CouponStore interface {
	DB() dbx.Builder
	GetCoupon(ctx context.Context, ex dbx.Builder, code, eventID string) (*models.Coupon, error)
	InsertCoupon(ctx context.Context, ex dbx.Builder, coupon *models.Coupon) error
	IncrementCouponUsage(ctx context.Context, ex dbx.Builder, id string) error
	DecrementCouponUsage(ctx context.Context, ex dbx.Builder, id string) error
	ListCouponsByEvent(ctx context.Context, ex dbx.Builder, eventID string) ([]models.Coupon, error)
}

// CouponService serializes validation and usage accounting for one coupon
// code across processes via a leased Redis lock plus an atomic counter. The
// durable current_usages column is the source of truth; the counter is a
// contention optimization that may drift transiently.
type CouponService struct {
	store       CouponStore
	redis       *redis.Client
	lockTTL     time.Duration
	lockRetries int
}

func NewCouponService(st CouponStore, redisClient *redis.Client, lockTTL time.Duration, lockRetries int) *CouponService {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	if lockRetries <= 0 {
		lockRetries = 3
	}
	return &CouponService{
		store:       st,
		redis:       redisClient,
		lockTTL:     lockTTL,
		lockRetries: lockRetries,
	}
}

// Create registers a coupon and seeds its fast usage counter.
func (s *CouponService) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	coupon.Code = strings.ToUpper(coupon.Code)

	_, err := s.store.GetCoupon(ctx, s.store.DB(), coupon.Code, coupon.EventID)
	if err == nil {
		return nil, status.ErrCouponExists
	}
	if !errors.Is(err, status.ErrCouponNotFound) {
		return nil, err
	}

	if coupon.ID == "" {
		coupon.ID = uuid.NewString()
	}
	if err := s.store.InsertCoupon(ctx, s.store.DB(), coupon); err != nil {
		return nil, err
	}

	usageKey := couponUsagePrefix + coupon.ID
	if err := s.redis.Set(ctx, usageKey, strconv.Itoa(coupon.CurrentUsages), couponUsageTTL).Err(); err != nil {
		slog.Warn("Failed to seed coupon usage counter",
			"coupon_id", coupon.ID,
			"error", err,
		)
	}

	slog.Info("Coupon created",
		"coupon_id", coupon.ID,
		"code", coupon.Code,
		"event_id", coupon.EventID,
	)
	return coupon, nil
}

// FindByCode returns an active coupon for the event.
func (s *CouponService) FindByCode(ctx context.Context, code, eventID string) (*models.Coupon, error) {
	coupon, err := s.store.GetCoupon(ctx, s.store.DB(), code, eventID)
	if err != nil {
		return nil, err
	}
	if !coupon.IsActive {
		return nil, status.ErrCouponNotFound
	}
	return coupon, nil
}

// ListByEvent returns every coupon registered for the event, active or not.
func (s *CouponService) ListByEvent(ctx context.Context, eventID string) ([]models.Coupon, error) {
	return s.store.ListCouponsByEvent(ctx, s.store.DB(), eventID)
}

// Apply validates the coupon under its lease and, when usable, computes the
// discount and increments both usage counters. Contention exhausting the
// bounded retries fails fast with ErrResourceBusy; losing a redemption is
// preferable to stalling a booking.
func (s *CouponService) Apply(ctx context.Context, code, eventID string, amount decimal.Decimal) (*Redemption, error) {
	code = strings.ToUpper(code)
	lockKey := fmt.Sprintf("%s%s:%s", couponLockPrefix, code, eventID)
	token := uuid.NewString()

	acquired, err := s.acquireLock(ctx, lockKey, token)
	if err != nil {
		return nil, fmt.Errorf("coupon lock: %w", err)
	}
	if !acquired {
		slog.Warn("Failed to acquire coupon lock",
			"code", code,
			"event_id", eventID,
		)
		monitoring.TrackCouponRedemption(eventID, "busy")
		return nil, status.ErrResourceBusy
	}
	defer s.releaseLock(ctx, lockKey, token)

	invalid := &Redemption{Valid: false, Discount: decimal.Zero, FinalAmount: amount}

	coupon, err := s.store.GetCoupon(ctx, s.store.DB(), code, eventID)
	if err != nil {
		if errors.Is(err, status.ErrCouponNotFound) {
			monitoring.TrackCouponRedemption(eventID, "invalid")
			return invalid, nil
		}
		return nil, err
	}

	if !coupon.IsActive {
		monitoring.TrackCouponRedemption(eventID, "invalid")
		return invalid, nil
	}

	if coupon.ExpiresAt.Before(time.Now()) {
		slog.Warn("Coupon expired", "code", code, "expires_at", coupon.ExpiresAt)
		monitoring.TrackCouponRedemption(eventID, "expired")
		return invalid, nil
	}

	if coupon.MinPurchaseAmount.IsPositive() && amount.LessThan(coupon.MinPurchaseAmount) {
		slog.Warn("Minimum purchase amount not met",
			"code", code,
			"required", coupon.MinPurchaseAmount,
			"actual", amount,
		)
		monitoring.TrackCouponRedemption(eventID, "below_minimum")
		return invalid, nil
	}

	usage, err := s.currentUsage(ctx, coupon)
	if err != nil {
		return nil, err
	}
	if usage >= coupon.MaxUsages {
		slog.Warn("Coupon usage limit reached",
			"code", code,
			"usage", usage,
			"max_usages", coupon.MaxUsages,
		)
		monitoring.TrackCouponRedemption(eventID, "usage_capped")
		return invalid, nil
	}

	discount := coupon.Discount(amount)
	finalAmount := models.FinalAmount(amount, discount)

	// Fast counter first for low-latency contention checks; the durable
	// column follows and may lag it transiently.
	usageKey := couponUsagePrefix + coupon.ID
	if err := s.redis.Incr(ctx, usageKey).Err(); err != nil {
		return nil, fmt.Errorf("increment usage counter: %w", err)
	}
	if err := s.store.IncrementCouponUsage(ctx, s.store.DB(), coupon.ID); err != nil {
		// Roll the fast counter back so a failed durable write does not leave
		// it permanently inflated against the durable column.
		if derr := decrFloorScript.Run(ctx, s.redis, []string{usageKey}).Err(); derr != nil && !errors.Is(derr, redis.Nil) {
			slog.Warn("Failed to roll back coupon usage counter",
				"coupon_id", coupon.ID,
				"error", derr,
			)
		}
		return nil, err
	}

	slog.Info("Coupon applied",
		"code", code,
		"event_id", eventID,
		"discount", discount,
		"final_amount", finalAmount,
	)
	monitoring.TrackCouponRedemption(eventID, "applied")

	return &Redemption{
		Valid:       true,
		Discount:    discount,
		FinalAmount: finalAmount,
		Coupon:      coupon,
	}, nil
}

// Revert undoes one redemption on both counters, floored at zero. It does not
// take the lease: compensation and cancellation may run long after the
// original lock expired.
func (s *CouponService) Revert(ctx context.Context, code, eventID string) error {
	coupon, err := s.store.GetCoupon(ctx, s.store.DB(), code, eventID)
	if err != nil {
		if errors.Is(err, status.ErrCouponNotFound) {
			return nil
		}
		return err
	}

	usageKey := couponUsagePrefix + coupon.ID
	if err := decrFloorScript.Run(ctx, s.redis, []string{usageKey}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("Failed to decrement coupon usage counter",
			"coupon_id", coupon.ID,
			"error", err,
		)
	}

	if err := s.store.DecrementCouponUsage(ctx, s.store.DB(), coupon.ID); err != nil {
		return err
	}

	slog.Info("Coupon usage reverted", "code", coupon.Code, "event_id", eventID)
	monitoring.TrackCouponRedemption(eventID, "reverted")
	return nil
}

func (s *CouponService) currentUsage(ctx context.Context, coupon *models.Coupon) (int, error) {
	usageKey := couponUsagePrefix + coupon.ID
	value, err := s.redis.Get(ctx, usageKey).Result()
	if errors.Is(err, redis.Nil) {
		// Counter evicted or never seeded; the durable column is truth.
		return coupon.CurrentUsages, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage counter: %w", err)
	}
	usage, err := strconv.Atoi(value)
	if err != nil {
		return coupon.CurrentUsages, nil
	}
	return usage, nil
}

// acquireLock writes the caller's token with a short TTL only if the key is
// absent, retrying a bounded number of times with exponential backoff.
func (s *CouponService) acquireLock(ctx context.Context, key, token string) (bool, error) {
	for attempt := 0; attempt < s.lockRetries; attempt++ {
		ok, err := s.redis.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * lockRetryBase
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return false, nil
}

func (s *CouponService) releaseLock(ctx context.Context, key, token string) {
	if err := releaseLockScript.Run(ctx, s.redis, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("Failed to release coupon lock", "key", key, "error", err)
	}
}
