package config

import (
    "fmt"
    "strings"
    "time"

    "github.com/kelseyhightower/envconfig"
)

// CacheConfig defines settings for the response cache in front of the
// public catalog, read from the CACHE_* variables.  When Enabled is
// false or no Redis client is configured, caching will be disabled.
// Responses larger than MaxBodyBytes are not cached.
type CacheConfig struct {
    Enabled      bool          `split_words:"true" default:"true"`
    Methods      []string      `split_words:"true" default:"GET"`
    TTL          time.Duration `split_words:"true" default:"30s"`
    Prefix       string        `split_words:"true" default:"bookstore:cache"`
    MaxBodyBytes int           `split_words:"true" default:"1048576"`

    // MethodSet holds Methods upper-cased for the per-request lookup.
    MethodSet map[string]bool `ignored:"true"`
}

// LoadCacheConfig reads the CACHE_* variables.  Catalog stock shown to
// browsers may lag by up to TTL; checkout always re-reads under lock.
func LoadCacheConfig() (CacheConfig, error) {
    var cfg CacheConfig
    if err := envconfig.Process("CACHE", &cfg); err != nil {
        return CacheConfig{}, fmt.Errorf("load cache config: %w", err)
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 30 * time.Second
    }
    cfg.MethodSet = make(map[string]bool, len(cfg.Methods))
    for _, m := range cfg.Methods {
        if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
            cfg.MethodSet[m] = true
        }
    }
    return cfg, nil
}
