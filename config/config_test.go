package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.CouponLockTTL)
	assert.Equal(t, 3, cfg.CouponLockRetries)
	assert.Equal(t, 5, cfg.CircuitThreshold)
	assert.Equal(t, 60*time.Second, cfg.CircuitTimeout)
	assert.Equal(t, 30*time.Second, cfg.CircuitResetTimeout)
	assert.Equal(t, "usd", cfg.Currency)
	assert.True(t, cfg.EnableMetrics)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("COUPON_LOCK_TTL", "2s")
	t.Setenv("COUPON_LOCK_RETRIES", "5")
	t.Setenv("CIRCUIT_BREAKER_THRESHOLD", "3")
	t.Setenv("ENABLE_METRICS", "false")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.CouponLockTTL)
	assert.Equal(t, 5, cfg.CouponLockRetries)
	assert.Equal(t, 3, cfg.CircuitThreshold)
	assert.False(t, cfg.EnableMetrics)
}

func TestGetEnvAsDurationFallback(t *testing.T) {
	t.Setenv("COUPON_LOCK_TTL", "not-a-duration")

	cfg := LoadConfig()
	assert.Equal(t, 5*time.Second, cfg.CouponLockTTL)
}
