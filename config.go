package sessionguard

import (
	"errors"
	"strings"
	"time"
)

// Config carries tuning for every sessionguard component. Configure once
// before [Builder.Build]; treat as immutable afterwards.
type Config struct {
	RateLimit RateLimitConfig
	OTP       OTPConfig
	Monitor   MonitorConfig
	Notify    NotifyConfig
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the fixed-window request limiter. Endpoint keys
// whose path contains AuthPathMarker use the stricter Auth* quota.
type RateLimitConfig struct {
	MaxRequests     int
	Window          time.Duration
	AuthMaxRequests int
	AuthWindow      time.Duration
	AuthPathMarker  string
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig tunes the verification flow. ResendCooldown is the delay
// imposed after a successful resend; PendingTTL bounds how long an
// unanswered two-factor challenge survives in the persisted store.
// CooldownTick is the granularity of the cooldown countdown; zero
// disables the flow's background ticker (countdown is then driven
// manually, which the tests rely on).
type OTPConfig struct {
	ResendCooldown time.Duration
	PendingTTL     time.Duration
	CooldownTick   time.Duration
}

/*
====================================
MONITOR CONFIG
====================================
*/

// MonitorConfig tunes the token lifecycle monitor.
type MonitorConfig struct {
	CheckInterval    time.Duration
	WarningThreshold time.Duration
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig tunes the async notification dispatcher that delivers
// user-facing events (expiry warnings, resend outcomes) to a [NotifySink].
type NotifyConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the production defaults: 100 requests per minute
// for general endpoints, 5 per minute for auth-sensitive ones, a 60 second
// resend cooldown, 30 second monitor checks with a 2 minute warning
// threshold, and notifications enabled.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		RateLimit: RateLimitConfig{
			MaxRequests:     100,
			Window:          time.Minute,
			AuthMaxRequests: 5,
			AuthWindow:      time.Minute,
			AuthPathMarker:  "/auth/",
		},
		OTP: OTPConfig{
			ResendCooldown: 60 * time.Second,
			PendingTTL:     10 * time.Minute,
			CooldownTick:   time.Second,
		},
		Monitor: MonitorConfig{
			CheckInterval:    30 * time.Second,
			WarningThreshold: 2 * time.Minute,
		},
		Notify: NotifyConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

func validateConfig(cfg Config) error {
	var problems []string

	if cfg.RateLimit.MaxRequests <= 0 {
		problems = append(problems, "RateLimit.MaxRequests must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		problems = append(problems, "RateLimit.Window must be positive")
	}
	if cfg.RateLimit.AuthMaxRequests <= 0 {
		problems = append(problems, "RateLimit.AuthMaxRequests must be positive")
	}
	if cfg.RateLimit.AuthWindow <= 0 {
		problems = append(problems, "RateLimit.AuthWindow must be positive")
	}
	if cfg.RateLimit.AuthMaxRequests > cfg.RateLimit.MaxRequests {
		problems = append(problems, "RateLimit.AuthMaxRequests must not exceed RateLimit.MaxRequests")
	}
	if cfg.OTP.ResendCooldown <= 0 {
		problems = append(problems, "OTP.ResendCooldown must be positive")
	}
	if cfg.OTP.PendingTTL <= 0 {
		problems = append(problems, "OTP.PendingTTL must be positive")
	}
	if cfg.OTP.CooldownTick < 0 {
		problems = append(problems, "OTP.CooldownTick must not be negative")
	}
	if cfg.Monitor.CheckInterval <= 0 {
		problems = append(problems, "Monitor.CheckInterval must be positive")
	}
	if cfg.Monitor.WarningThreshold <= 0 {
		problems = append(problems, "Monitor.WarningThreshold must be positive")
	}
	if cfg.Notify.Enabled && cfg.Notify.BufferSize <= 0 {
		problems = append(problems, "Notify.BufferSize must be positive when notifications are enabled")
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}
