package config

import (
    "fmt"
    "time"

    "github.com/kelseyhightower/envconfig"
)

// RateLimitConfig configures a Redis token bucket.  The general bucket
// guards cart writes; checkout gets its own, smaller bucket because each
// attempt takes row locks on the books in the cart.
//
// Fields are read from <PREFIX>_<FIELD_NAME>, e.g.
// CHECKOUT_RATE_LIMIT_REFILL_INTERVAL.
type RateLimitConfig struct {
    Enabled        bool          `split_words:"true"`
    Capacity       int           `split_words:"true"`
    RefillTokens   int           `split_words:"true"`
    RefillInterval time.Duration `split_words:"true"`
    TTL            time.Duration `split_words:"true"`
    KeyStrategy    string        `split_words:"true"`
    Prefix         string        `split_words:"true"`
    Debug          bool          `split_words:"true"`
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.
func LoadRateLimitConfig() (RateLimitConfig, error) {
    return loadBucket("RATE_LIMIT", RateLimitConfig{
        Enabled:        true,
        Capacity:       60,
        RefillTokens:   1,
        RefillInterval: time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_user_route",
        Prefix:         "bookstore:rl",
    })
}

// LoadCheckoutRateLimitConfig reads the CHECKOUT_RATE_LIMIT_* variables.
// Checkout is keyed per user.
func LoadCheckoutRateLimitConfig() (RateLimitConfig, error) {
    return loadBucket("CHECKOUT_RATE_LIMIT", RateLimitConfig{
        Enabled:        true,
        Capacity:       5,
        RefillTokens:   1,
        RefillInterval: 10 * time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "user_route",
        Prefix:         "bookstore:rl:checkout",
    })
}

// loadBucket overlays the environment onto def.  Unset variables keep
// the value from def; malformed ones are an error.
func loadBucket(prefix string, def RateLimitConfig) (RateLimitConfig, error) {
    cfg := def
    if err := envconfig.Process(prefix, &cfg); err != nil {
        return RateLimitConfig{}, fmt.Errorf("load %s config: %w", prefix, err)
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval < time.Millisecond {
        cfg.RefillInterval = time.Second
    }
    // a bucket must outlive a full refill or it resets to capacity early
    if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
        cfg.TTL = minTTL
    }
    return cfg, nil
}
