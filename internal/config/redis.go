package config

import (
    "context"
    "crypto/tls"
    "fmt"
    "time"

    "github.com/kelseyhightower/envconfig"
    "github.com/redis/go-redis/v9"
)

// RedisConfig is read from the REDIS_* variables.  HOST and PORT take
// precedence over ADDR when both are set.
type RedisConfig struct {
    Addr     string `split_words:"true" default:"localhost:6379"`
    Host     string `split_words:"true"`
    Port     string `split_words:"true"`
    Password string `split_words:"true"`
    DB       int    `split_words:"true" default:"0"`
    TLS      bool   `split_words:"true"`
}

func LoadRedisConfig() (RedisConfig, error) {
    var cfg RedisConfig
    if err := envconfig.Process("REDIS", &cfg); err != nil {
        return RedisConfig{}, fmt.Errorf("load redis config: %w", err)
    }
    return cfg, nil
}

// Address returns the host:port to dial.
func (c RedisConfig) Address() string {
    if c.Host != "" && c.Port != "" {
        return c.Host + ":" + c.Port
    }
    return c.Addr
}

// NewRedisClient connects to Redis.  Redis backs rate limiting and the
// catalog cache only: when the server cannot be pinged the client is
// closed and nil is returned, and callers disable both.
func NewRedisClient(ctx context.Context, cfg RedisConfig) *redis.Client {
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Address(),
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := client.Ping(pctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
