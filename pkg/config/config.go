// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
)

type Config struct {
	BaseTolerance          int    `env:"BASE_TOLERANCE"           envDefault:"50"      envDocs:"rating gap accepted when pairing two fresh queue entries"`
	MaxTolerance           int    `env:"MAX_TOLERANCE"            envDefault:"100"     envDocs:"upper bound for the widened rating gap"`
	WidenAfterMs           int    `env:"WIDEN_AFTER_MS"           envDefault:"15000"   envDocs:"queue time after which the tolerance doubles (0 means use default from code)"`
	TurnTimeoutSecond      int    `env:"TURN_TIMEOUT_SECOND"      envDefault:"30"      envDocs:"per-turn deadline in second (0 means use default from code)"`
	DefaultTimeoutPolicy   string `env:"DEFAULT_TIMEOUT_POLICY"   envDefault:"forfeit" envDocs:"forfeit or pass, applied to game kinds without an override"`
	TimeoutPolicies        string `env:"TIMEOUT_POLICIES"         envDefault:""        envDocs:"per game kind override, e.g. chess:forfeit,duel:pass"`
	MaxConsecutiveTimeouts int    `env:"MAX_CONSECUTIVE_TIMEOUTS" envDefault:"3"       envDocs:"consecutive missed deadlines by one player that force a forfeit"`
	SweepIntervalMs        int    `env:"SWEEP_INTERVAL_MS"        envDefault:"1000"    envDocs:"interval of the timeout sweeper and queue matcher"`
	PersistMaxRetries      int    `env:"PERSIST_MAX_RETRIES"      envDefault:"5"       envDocs:"retries for rating persistence before parking the outcome for reconciliation"`
	PersistInitialDelayMs  int    `env:"PERSIST_INITIAL_DELAY_MS" envDefault:"50"      envDocs:"initial backoff delay for rating persistence"`

	Port           int    `env:"PORT"            envDefault:"8080" envDocs:"http listen port"`
	DatabaseURL    string `env:"DATABASE_URL"    envDefault:""     envDocs:"postgres dsn; empty uses the in-memory rating store"`
	RedisAddr      string `env:"REDIS_ADDR"      envDefault:""     envDocs:"redis address for the completed-session archive; empty keeps it in memory"`
	ZipkinEndpoint string `env:"ZIPKIN_ENDPOINT" envDefault:""     envDocs:"zipkin collector url; empty disables trace export"`
	LogLevel       string `env:"LOG_LEVEL"       envDefault:"info" envDocs:"logrus level"`
}

// Default returns the configuration with the values from code.
func Default() *Config {
	return &Config{
		BaseTolerance:          constants.BaseTolerance,
		MaxTolerance:           constants.MaxTolerance,
		WidenAfterMs:           int(constants.WidenAfter.Milliseconds()),
		TurnTimeoutSecond:      int(constants.TurnTimeout.Seconds()),
		DefaultTimeoutPolicy:   constants.TimeoutPolicyForfeit,
		MaxConsecutiveTimeouts: constants.MaxConsecutiveTimeouts,
		SweepIntervalMs:        int(constants.SweepInterval.Milliseconds()),
		PersistMaxRetries:      5,
		PersistInitialDelayMs:  50,
		Port:                   8080,
		LogLevel:               "info",
	}
}

func (c *Config) WidenAfter() time.Duration {
	if c.WidenAfterMs <= 0 {
		return constants.WidenAfter
	}
	return time.Duration(c.WidenAfterMs) * time.Millisecond
}

func (c *Config) TurnTimeout() time.Duration {
	if c.TurnTimeoutSecond <= 0 {
		return constants.TurnTimeout
	}
	return time.Duration(c.TurnTimeoutSecond) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	if c.SweepIntervalMs <= 0 {
		return constants.SweepInterval
	}
	return time.Duration(c.SweepIntervalMs) * time.Millisecond
}

func (c *Config) PersistInitialDelay() time.Duration {
	return time.Duration(c.PersistInitialDelayMs) * time.Millisecond
}

// TimeoutPolicy returns the timeout policy for a game kind.
func (c *Config) TimeoutPolicy(gameKind string) string {
	policies, _ := ParseTimeoutPolicies(c.TimeoutPolicies)
	if policy, ok := policies[gameKind]; ok {
		return policy
	}
	if c.DefaultTimeoutPolicy == "" {
		return constants.TimeoutPolicyForfeit
	}
	return c.DefaultTimeoutPolicy
}

// Validate checks the values env cannot check by itself.
func (c *Config) Validate() error {
	if c.BaseTolerance < 0 || c.MaxTolerance < c.BaseTolerance {
		return fmt.Errorf("invalid tolerance range %d..%d", c.BaseTolerance, c.MaxTolerance)
	}
	if !isPolicy(c.DefaultTimeoutPolicy) {
		return fmt.Errorf("invalid default timeout policy %q", c.DefaultTimeoutPolicy)
	}
	if _, err := ParseTimeoutPolicies(c.TimeoutPolicies); err != nil {
		return err
	}
	if c.MaxConsecutiveTimeouts <= 0 {
		return fmt.Errorf("max consecutive timeouts must be positive, got %d", c.MaxConsecutiveTimeouts)
	}
	if c.PersistInitialDelayMs <= 0 {
		return fmt.Errorf("persist initial delay must be positive, got %dms", c.PersistInitialDelayMs)
	}
	if c.PersistMaxRetries < 0 {
		return fmt.Errorf("persist max retries must not be negative, got %d", c.PersistMaxRetries)
	}
	return nil
}

// ParseTimeoutPolicies parses "kind:policy,kind:policy".
func ParseTimeoutPolicies(raw string) (map[string]string, error) {
	policies := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kind, policy, ok := strings.Cut(pair, ":")
		kind = strings.TrimSpace(kind)
		policy = strings.ToLower(strings.TrimSpace(policy))
		if !ok || kind == "" || !isPolicy(policy) {
			return nil, fmt.Errorf("invalid timeout policy entry %q", pair)
		}
		policies[kind] = policy
	}
	return policies, nil
}

func isPolicy(policy string) bool {
	return policy == constants.TimeoutPolicyForfeit || policy == constants.TimeoutPolicyPass
}
