package middlewares

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// CounterStore counts hits per key inside a fixed window. The in-memory
// store is fine for a single replica; the redis store keeps limits honest
// across several.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, windowEnd time.Time, err error)
}

type RateLimiter struct {
	store  CounterStore
	limit  int
	window time.Duration
}

func NewRateLimiter(store CounterStore, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

// Middleware enforces the limit for a key derived from the request.
func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, windowEnd, err := rl.store.Incr(c.Request.Context(), key, rl.window)

		if err != nil {
			// counter trouble must not take the API down; let it pass
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(time.Until(windowEnd).Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})

			return
		}

		c.Next()
	}
}

// KeyByIP: for unauthenticated endpoints, rate limit by IP.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// KeyByUserOrIP: for authenticated endpoints, prefer the user id.
func KeyByUserOrIP(c *gin.Context) string {
	ident, ok := IdentityFromContext(c)

	if ok {
		return "user:" + ident.ID
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	// normalize away a port if one sneaks through

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}

// MemoryCounterStore is the single-process fixed-window counter.
type MemoryCounterStore struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		clients: make(map[string]*clientBucket),
	}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.clients[key]

	if !ok || now.After(b.windowEnd) {
		b = &clientBucket{
			count:     0,
			windowEnd: now.Add(window),
		}
		s.clients[key] = b
	}

	b.count++

	return b.count, b.windowEnd, nil
}
