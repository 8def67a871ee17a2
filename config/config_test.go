package config_test

import (
	"testing"
	"time"

	"passagens/config"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 15*time.Second, cfg.FiscalTimeout)
	assert.Equal(t, 10*time.Minute, cfg.HoldTTL)
	assert.True(t, cfg.AutoIssue)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("FISCAL_TIMEOUT", "30s")
	t.Setenv("AUTO_ISSUE", "false")
	t.Setenv("HOLD_TTL", "not-a-duration")

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.FiscalTimeout)
	assert.False(t, cfg.AutoIssue)
	// Unparseable values fall back to the default.
	assert.Equal(t, 10*time.Minute, cfg.HoldTTL)
}
