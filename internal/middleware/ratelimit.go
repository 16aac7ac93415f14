package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"event-search/internal/cache"
	"event-search/internal/metrics"
	"event-search/internal/services/events"
)

// Limiter decides whether the client identified by key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// idleLimiterTTL is how long a client's bucket survives without requests.
const idleLimiterTTL = 10 * time.Minute

// MemoryLimiter keeps one token bucket per client in process memory.
// Limits are not shared between instances. Buckets idle for longer than
// idleLimiterTTL are swept on a later Allow call.
type MemoryLimiter struct {
	limiters sync.Map // client key -> *clientLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// NewMemoryLimiter refills requestsPerMinute tokens a minute up to burst.
func NewMemoryLimiter(requestsPerMinute, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		rate:      rate.Limit(float64(requestsPerMinute) / 60),
		burst:     burst,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	l.sweep(now)

	entry, ok := l.limiters.Load(key)
	if !ok {
		entry, _ = l.limiters.LoadOrStore(key, &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)})
	}
	client := entry.(*clientLimiter)
	client.lastSeen.Store(now.UnixNano())
	return client.limiter.AllowN(now, 1), nil
}

// sweep drops idle buckets at most once per idleLimiterTTL.
func (l *MemoryLimiter) sweep(now time.Time) {
	l.mu.Lock()
	if now.Sub(l.lastSweep) < idleLimiterTTL {
		l.mu.Unlock()
		return
	}
	l.lastSweep = now
	l.mu.Unlock()

	cutoff := now.Add(-idleLimiterTTL).UnixNano()
	l.limiters.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < cutoff {
			l.limiters.Delete(key)
		}
		return true
	})
}

// RedisLimiter counts requests per client in fixed one minute windows stored in
// Redis, so every instance pointed at the same Redis shares the limit.
type RedisLimiter struct {
	client            *redis.Client
	requestsPerMinute int
	now               func() time.Time
}

func NewRedisLimiter(client *redis.Client, requestsPerMinute int) *RedisLimiter {
	return &RedisLimiter{
		client:            client,
		requestsPerMinute: requestsPerMinute,
		now:               time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := cache.RateLimitKey(key, cache.RateLimitWindowAt(l.now()))

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, cache.RateLimitTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter for %s: %w", key, err)
	}

	return count.Val() <= int64(l.requestsPerMinute), nil
}

// RateLimit rejects clients over their limit with 429. If the limiter itself
// fails the request goes through.
func RateLimit(limiter Limiter, backend string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			allowed, err := limiter.Allow(r.Context(), clientIP)
			if err != nil {
				log.Warn().
					Err(err).
					Str("backend", backend).
					Str("client_ip", clientIP).
					Msg("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				metrics.RateLimitRejections.WithLabelValues(backend).Inc()
				log.Warn().
					Str("client_ip", clientIP).
					Str("path", r.URL.Path).
					Msg("Rate limit exceeded")

				w.Header().Set("Retry-After", "60")
				WriteJSON(w, http.StatusTooManyRequests,
					events.NewErrorResponse(events.ErrCodeRateLimit, "Rate limit exceeded. Please try again later."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the host part of the remote address. chi's RealIP
// middleware has already replaced it with the forwarded client address.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
