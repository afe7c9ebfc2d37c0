package config

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// RedisAddress resolves the Redis address. REDIS_HOST with REDIS_PORT wins
// over REDIS_ADDR; an empty result means Redis is not configured.
func (c Config) RedisAddress() string {
	if c.RedisHost != "" && c.RedisPort != "" {
		return net.JoinHostPort(c.RedisHost, c.RedisPort)
	}
	return c.RedisAddr
}

// NewRedisClient connects to Redis and pings it. Callers treat an error
// as "run without cache and rate limiting".
func NewRedisClient(ctx context.Context, c Config) (*redis.Client, error) {
	addr := c.RedisAddress()
	if addr == "" {
		return nil, errors.New("redis not configured")
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
	if c.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}
