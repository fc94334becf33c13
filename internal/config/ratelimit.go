package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of the API.
// Capacity is the bucket size; RefillTokens are added every RefillInterval.
// Idle buckets expire after TTL.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // ip, user, ip_route, user_route or ip_user_route
	Prefix         string
	// BookingCapacity is a tighter bucket applied only to booking writes.
	BookingCapacity int
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and normalises them so the
// limiter never sees a zero bucket or an interval shorter than a tick.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:         envBool("RATE_LIMIT_ENABLED", true),
		Capacity:        envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:    envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:  envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:             envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:     envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:          envStr("RATE_LIMIT_PREFIX", "rl"),
		BookingCapacity: envInt("RATE_LIMIT_BOOKING_CAPACITY", 10),
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens = 1
		c.RefillInterval = every
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.BookingCapacity < 1 {
		c.BookingCapacity = c.Capacity
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// buckets must outlive a few refill cycles or they reset to full
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
