package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.Reservation.HoldTTL)
	assert.Equal(t, 60*time.Second, cfg.Sweeper.Interval)
	assert.Equal(t, 15*time.Minute, cfg.Sweeper.TicketStaleAfter)
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Contains(t, cfg.Database.DSN, "dbname=ticketing_db")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RESERVATION_HOLD_TTL", "5m")
	t.Setenv("SWEEPER_BATCH_SIZE", "50")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SWEEPER_ENABLED", "false")
	t.Setenv("RESERVATION_MAX_SEATS", "not-a-number")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Reservation.HoldTTL)
	assert.Equal(t, 50, cfg.Sweeper.BatchSize)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 10, cfg.Reservation.MaxSeatsPerHold)
}

func TestPaymentGatewayEnabled(t *testing.T) {
	cfg := Load()
	assert.False(t, cfg.PaymentGatewayEnabled())

	cfg.Payment.ProviderBaseURL = "https://api.provider.test"
	cfg.Payment.AccessToken = "token"
	assert.True(t, cfg.PaymentGatewayEnabled())
}

func TestValidateRequiresPaymentVerificationInRelease(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "a-real-secret")

	cfg := Load()
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "PAYMENT_PROVIDER_BASE_URL")
	assert.ErrorContains(t, err, "PAYMENT_WEBHOOK_SECRET")

	cfg.Payment.ProviderBaseURL = "https://api.provider.test"
	cfg.Payment.AccessToken = "token"
	cfg.Payment.WebhookSecret = "whsec"
	assert.NoError(t, cfg.Validate())

	cfg.JWT.Secret = defaultJWTSecret
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestValidateAllowsDebugDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")

	cfg := Load()
	assert.NoError(t, cfg.Validate())
}
