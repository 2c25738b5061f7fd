package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		JWTSecret: "a-secret-that-is-at-least-32-chars!!",
		Payment: PaymentConfig{
			APIKey:        "sk_test_123",
			WebhookSecret: "whsec_test",
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "shop-events", cfg.KafkaTopic)
	assert.Equal(t, "eur", cfg.Payment.Currency)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "kafka1:9092,kafka2:9092")
	t.Setenv("PAYMENT_CURRENCY", "usd")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka1:9092", "kafka2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "usd", cfg.Payment.Currency)
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)
}

func TestValidate_ShortJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "too-short"
	assert.ErrorIs(t, cfg.Validate(), ErrJWTSecretTooShort)
}

func TestValidate_MissingWebhookSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Payment.WebhookSecret = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingWebhookSecret)
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Payment.APIKey = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}
