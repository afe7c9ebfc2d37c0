package config

import "time"

// CacheConfig drives the response cache middleware. Caching is off when
// Enabled is false or no Redis client is available.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// Cache derives the cache settings. Methods are upper-cased.
func (c Config) Cache() CacheConfig {
	methods := map[string]bool{}
	for _, m := range splitList(c.CacheMethods, true) {
		methods[m] = true
	}
	ttl := c.CacheTTL
	if ttl <= 0 {
		ttl = time.Second
	}
	return CacheConfig{
		Enabled:      c.CacheEnabled,
		Methods:      methods,
		TTL:          ttl,
		KeyStrategy:  c.CacheKeyStrategy,
		Prefix:       c.CachePrefix,
		MaxBodyBytes: c.CacheMaxBodyBytes,
	}
}
