// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "REDIS_ADDR", "ZIPKIN_ENDPOINT", "LOG_LEVEL", "TIMEOUT_POLICIES"} {
		t.Setenv(key, "")
	}
	cfg := Config{}
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, *Default(), cfg)
	assert.Equal(t, 15*time.Second, cfg.WidenAfter())
	assert.Equal(t, 30*time.Second, cfg.TurnTimeout())
	assert.Equal(t, time.Second, cfg.SweepInterval())
	assert.NoError(t, cfg.Validate())
}

func TestParse_FromEnvironment(t *testing.T) {
	t.Setenv("BASE_TOLERANCE", "25")
	t.Setenv("TURN_TIMEOUT_SECOND", "5")
	t.Setenv("TIMEOUT_POLICIES", "chess:forfeit, duel:PASS")

	cfg := Config{}
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, 25, cfg.BaseTolerance)
	assert.Equal(t, 5*time.Second, cfg.TurnTimeout())
	assert.Equal(t, "pass", cfg.TimeoutPolicy("duel"))
	assert.Equal(t, "forfeit", cfg.TimeoutPolicy("chess"))
	assert.Equal(t, "forfeit", cfg.TimeoutPolicy("go"))
	assert.NoError(t, cfg.Validate())
}

func TestZeroValuesFallBackToCode(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, 15*time.Second, cfg.WidenAfter())
	assert.Equal(t, 30*time.Second, cfg.TurnTimeout())
	assert.Equal(t, "forfeit", cfg.TimeoutPolicy("duel"))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"max below base", func(c *Config) { c.MaxTolerance = 10 }},
		{"negative base", func(c *Config) { c.BaseTolerance = -1 }},
		{"unknown default policy", func(c *Config) { c.DefaultTimeoutPolicy = "sudden-death" }},
		{"malformed overrides", func(c *Config) { c.TimeoutPolicies = "duel" }},
		{"unknown override policy", func(c *Config) { c.TimeoutPolicies = "duel:skip" }},
		{"no timeouts allowed", func(c *Config) { c.MaxConsecutiveTimeouts = 0 }},
		{"zero persist delay", func(c *Config) { c.PersistInitialDelayMs = 0 }},
		{"negative persist delay", func(c *Config) { c.PersistInitialDelayMs = -5 }},
		{"negative persist retries", func(c *Config) { c.PersistMaxRetries = -1 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ZeroRetriesAllowed(t *testing.T) {
	cfg := Default()
	cfg.PersistMaxRetries = 0
	assert.NoError(t, cfg.Validate())
}

func TestParseTimeoutPolicies(t *testing.T) {
	policies, err := ParseTimeoutPolicies("")
	require.NoError(t, err)
	assert.Empty(t, policies)

	policies, err = ParseTimeoutPolicies("chess:forfeit,duel:pass,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"chess": "forfeit", "duel": "pass"}, policies)
}
