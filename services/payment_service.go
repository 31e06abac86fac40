package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/models"
	"github.com/TrongtrongJ/eventeer/utils"
)

const paymentCircuitName = "payment-gateway"

// PaymentGateway is the external provider contract. Implementations live
// behind the circuit breaker and are never trusted to fail gracefully on
// their own.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*models.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string) (bool, error)
	Refund(ctx context.Context, paymentIntentID string, amount decimal.Decimal) (bool, error)
}

// PaymentService routes every gateway call through the circuit breaker.
// When a fallback gateway is configured (the mock provider in development),
// an open circuit degrades to it instead of failing the booking.
type PaymentService struct {
	gateway  PaymentGateway
	fallback PaymentGateway
	breaker  *utils.CircuitBreaker
}

func NewPaymentService(gateway PaymentGateway, fallback PaymentGateway, registry *utils.CircuitRegistry) *PaymentService {
	return &PaymentService{
		gateway:  gateway,
		fallback: fallback,
		breaker:  registry.Get(paymentCircuitName),
	}
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*models.PaymentIntent, error) {
	var fallback func() (any, error)
	if s.fallback != nil {
		fallback = func() (any, error) {
			slog.Warn("Payment circuit degraded, using fallback gateway",
				"booking_id", metadata["booking_id"],
			)
			return s.fallback.CreatePaymentIntent(ctx, amount, currency, metadata)
		}
	}

	result, err := s.breaker.Execute(ctx, func() (any, error) {
		return s.gateway.CreatePaymentIntent(ctx, amount, currency, metadata)
	}, fallback)
	if err != nil {
		if errors.Is(err, status.ErrCircuitOpen) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", status.ErrPaymentInitFailed, err)
	}

	intent := result.(*models.PaymentIntent)
	slog.Info("Payment intent created",
		"payment_intent_id", intent.ID,
		"amount", amount,
		"currency", currency,
	)
	return intent, nil
}

func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentIntentID string) (bool, error) {
	result, err := s.breaker.Execute(ctx, func() (any, error) {
		return s.gateway.ConfirmPayment(ctx, paymentIntentID)
	}, nil)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (s *PaymentService) Refund(ctx context.Context, paymentIntentID string, amount decimal.Decimal) (bool, error) {
	result, err := s.breaker.Execute(ctx, func() (any, error) {
		return s.gateway.Refund(ctx, paymentIntentID, amount)
	}, nil)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// MockGateway simulates the payment provider with Redis-persisted intents.
// It backs development environments and serves as the degraded-mode fallback
// when the real provider's circuit is open.
type MockGateway struct {
	redis *redis.Client
}

func NewMockGateway(redisClient *redis.Client) *MockGateway {
	return &MockGateway{redis: redisClient}
}

func (g *MockGateway) intentKey(id string) string {
	return "payment:intent:" + id
}

func (g *MockGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*models.PaymentIntent, error) {
	code, err := utils.GenerateCode(8)
	if err != nil {
		return nil, err
	}

	intent := &models.PaymentIntent{
		ID:           "pi_mock_" + code,
		ClientSecret: fmt.Sprintf("pi_mock_%s_secret", code),
		Amount:       amount,
		Currency:     currency,
		Status:       "pending",
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}

	metadataJSON, _ := json.Marshal(metadata)
	key := g.intentKey(intent.ID)
	if err := g.redis.HSet(ctx, key, map[string]any{
		"amount":     amount.String(),
		"currency":   currency,
		"status":     intent.Status,
		"metadata":   string(metadataJSON),
		"created_at": intent.CreatedAt.Unix(),
	}).Err(); err != nil {
		return nil, fmt.Errorf("persist mock intent: %w", err)
	}
	g.redis.Expire(ctx, key, 24*time.Hour)

	return intent, nil
}

// ConfirmPayment reports success for any known intent; the mock provider
// settles everything it issued.
func (g *MockGateway) ConfirmPayment(ctx context.Context, paymentIntentID string) (bool, error) {
	key := g.intentKey(paymentIntentID)
	exists, err := g.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}

	if err := g.redis.HSet(ctx, key, "status", "succeeded").Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (g *MockGateway) Refund(ctx context.Context, paymentIntentID string, amount decimal.Decimal) (bool, error) {
	key := g.intentKey(paymentIntentID)
	exists, err := g.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		slog.Warn("Mock intent not found for refund", "payment_intent_id", paymentIntentID)
		return false, nil
	}

	if err := g.redis.HSet(ctx, key, map[string]any{
		"status":   "refunded",
		"refunded": amount.String(),
	}).Err(); err != nil {
		return false, err
	}
	return true, nil
}
