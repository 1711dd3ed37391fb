package config_test

import (
	"testing"
	"time"

	"concert-tickets/config"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_JWTSecret(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		t.Setenv("GIN_MODE", "release")
		t.Setenv("JWT_SECRET", "s3cr3t")

		cfg := config.LoadConfig()
		assert.Equal(t, "s3cr3t", cfg.Auth.JWTSecret)
	})

	t.Run("Failed - missing in release mode", func(t *testing.T) {
		t.Setenv("GIN_MODE", "release")
		t.Setenv("JWT_SECRET", "")

		assert.Panics(t, func() { config.LoadConfig() })
	})

	t.Run("Failed - missing with default mode", func(t *testing.T) {
		t.Setenv("GIN_MODE", "")
		t.Setenv("JWT_SECRET", "")

		assert.Panics(t, func() { config.LoadConfig() })
	})

	t.Run("Debug mode falls back", func(t *testing.T) {
		t.Setenv("GIN_MODE", "debug")
		t.Setenv("JWT_SECRET", "")

		cfg := config.LoadConfig()
		assert.NotEmpty(t, cfg.Auth.JWTSecret)
		assert.NotEqual(t, "change-me", cfg.Auth.JWTSecret)
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	t.Setenv("RESERVATION_HOLD", "")
	t.Setenv("RECEIPT_QUEUE", "")
	t.Setenv("PAYMENT_REVERT_TIMEOUT", "3s")

	cfg := config.LoadConfig()
	assert.Equal(t, 10*time.Minute, cfg.Reservation.Hold)
	assert.Equal(t, config.QueueDriverMemory, cfg.Queue.Driver)
	assert.Equal(t, 3*time.Second, cfg.Payment.RevertTimeout)
}

func TestLoadTestConfig(t *testing.T) {
	cfg := config.LoadTestConfig()
	assert.Equal(t, "test", cfg.Server.GinMode)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, config.QueueDriverMemory, cfg.Queue.Driver)
	assert.Positive(t, cfg.Reservation.SweepInterval)
}
