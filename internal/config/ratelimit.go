package config

import "time"

// RateLimitConfig drives the token-bucket limiter.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
}

// RateLimit derives limiter settings, clamping nonsensical values. The
// bucket TTL is at least five refill intervals.
func (c Config) RateLimit() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        c.RateLimitEnabled,
		Capacity:       c.RateLimitCapacity,
		RefillTokens:   c.RateLimitRefillTokens,
		RefillInterval: c.RateLimitRefillInterval,
		TTL:            c.RateLimitTTL,
		KeyStrategy:    c.RateLimitKeyStrategy,
		Prefix:         c.RateLimitPrefix,
	}
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl
}
