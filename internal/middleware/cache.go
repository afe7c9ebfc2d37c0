package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/config"
)

// captureWriter tees the response body (up to limit bytes) while writing
// it to the client.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.truncated = true
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// cacheKey builds a key from prefix and strategy. The variable part is
// hashed to keep keys short.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	default: // route_query
		parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

// Cache serves repeated requests for the wrapped routes from Redis. Only
// 200 responses no larger than MaxBodyBytes are stored. It is a no-op
// when caching is disabled or rdb is nil.
func Cache(cfg config.CacheConfig, rdb *redis.Client, lg *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(bs, &hit) == nil {
					h := c.Response().Header()
					for k, vals := range hit.Header {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						h[k] = vals
					}
					h.Set("X-Cache", "HIT")
					c.Response().WriteHeader(hit.Status)
					_, err := c.Response().Write(hit.Body)
					return err
				}
			} else if !errors.Is(err, redis.Nil) {
				lg.Warn("Cache read failed", zap.Error(err), zap.String("key", key))
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := json.Marshal(cachedResponse{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()})
			if err != nil {
				return nil
			}
			// Detached from the request so a disconnecting client does not
			// abort the write.
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
				lg.Warn("Cache write failed", zap.Error(err), zap.String("key", key))
			}
			return nil
		}
	}
}

// CachePurger drops every cached response under a prefix. A nil
// *CachePurger is valid and does nothing.
type CachePurger struct {
	rdb    *redis.Client
	prefix string
}

// NewCachePurger returns a purger, or nil when caching is off.
func NewCachePurger(cfg config.CacheConfig, rdb *redis.Client) *CachePurger {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &CachePurger{rdb: rdb, prefix: cfg.Prefix}
}

// Purge deletes the cached responses.
func (p *CachePurger) Purge(ctx context.Context) error {
	if p == nil {
		return nil
	}
	iter := p.rdb.Scan(ctx, 0, p.prefix+":*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scan cache keys")
	}
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(p.rdb.Del(ctx, keys...).Err(), "delete cache keys")
}
