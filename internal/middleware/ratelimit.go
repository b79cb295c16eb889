// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/repuestospro/backend/internal/core"
)

type RateLimitConfig struct {
	Limit      redis_rate.Limit
	KeyFunc    func(*http.Request) string
	FailOpen   bool
	BypassFunc func(*http.Request) bool
	OnLimited  func(http.ResponseWriter, *http.Request, *redis_rate.Result)
}

// RateLimiter counts requests per key in Redis with GCRA. When Redis is
// missing or failing it degrades to an in-process token bucket, so limits
// still hold per instance.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	config   RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	rl := &RateLimiter{
		fallback: newLocalLimiter(),
		config:   cfg,
	}
	if rdb != nil {
		rl.limiter = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.BypassFunc != nil && rl.config.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.config.KeyFunc(r)
		res, err := rl.allow(r.Context(), key)
		if err != nil {
			if !rl.config.FailOpen {
				core.JSONError(w, core.UnavailableError("rate limiter unavailable"))
				return
			}
			slog.Warn("rate limiter error, failing open", "error", err, "key", key)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, res, rl.config.Limit)

		if res.Allowed > 0 {
			next.ServeHTTP(w, r)
			return
		}
		if rl.config.OnLimited != nil {
			rl.config.OnLimited(w, r, res)
			return
		}
		writeRateLimitExceeded(w, res)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (*redis_rate.Result, error) {
	if rl.limiter != nil {
		res, err := rl.limiter.Allow(ctx, key, rl.config.Limit)
		if err == nil {
			return res, nil
		}
		slog.Debug("redis rate limit failed, using local limiter", "error", err)
	}
	return rl.fallback.allow(key, rl.config.Limit)
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + ClientIP(r)
}

func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:user:" + userID
	}
	return KeyByIP(r)
}

// KeyByUserAndEndpoint buckets per caller and route shape, so
// /products/<id> shares one bucket across ids.
func KeyByUserAndEndpoint(r *http.Request) string {
	return KeyByUser(r) + ":endpoint:" + normalizeEndpoint(r.URL.Path)
}

func normalizeEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if isIdentifier(part) {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
		return true
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func setRateLimitHeaders(w http.ResponseWriter, res *redis_rate.Result, limit redis_rate.Limit) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))

	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf(`%d;t=%d`, res.Remaining, int(res.ResetAfter.Seconds())))
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSON(w, http.StatusTooManyRequests, core.ErrorResponse{
		Success: false,
		Message: fmt.Sprintf("too many requests, retry after %d seconds", retryAfter),
		Code:    "RATE_LIMITED",
	})
}

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

type localLimiter struct {
	limiters sync.Map
}

func newLocalLimiter() *localLimiter {
	l := &localLimiter{}
	go l.cleanup()
	return l
}

func (l *localLimiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-entryTTL).Unix()
		l.limiters.Range(func(key, value any) bool {
			if entry, ok := value.(*limiterEntry); ok && entry.lastAccess.Load() < cutoff {
				l.limiters.Delete(key)
			}
			return true
		})
	}
}

var errLimiterEntry = errors.New("invalid limiter entry type")

// allow mirrors redis_rate's result shape so callers cannot tell which
// backend answered.
func (l *localLimiter) allow(key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	perSecond := float64(limit.Rate) / limit.Period.Seconds()
	interval := time.Duration(float64(time.Second) / perSecond)

	value, ok := l.limiters.Load(key)
	if !ok {
		value, _ = l.limiters.LoadOrStore(key, &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst),
		})
	}
	entry, ok := value.(*limiterEntry)
	if !ok {
		return nil, errLimiterEntry
	}
	entry.lastAccess.Store(time.Now().Unix())

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if entry.limiter.Allow() {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(int(entry.limiter.Tokens()), 0)

	return res, nil
}

type TierConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// DefaultTiers limits authenticated traffic per role. Staff roles get more
// headroom than shoppers because store dashboards poll orders and stock.
var DefaultTiers = map[string]TierConfig{
	RoleClient:       {RequestsPerMinute: 120, BurstSize: 20},
	RoleDelivery:     {RequestsPerMinute: 240, BurstSize: 40},
	RoleStoreManager: {RequestsPerMinute: 600, BurstSize: 100},
	RoleAdmin:        {RequestsPerMinute: 1200, BurstSize: 200},
}

// TieredRateLimiter must run after Authenticator. Requests without a user
// pass through untouched; unknown roles use the client tier.
func TieredRateLimiter(rdb *redis.Client, tiers map[string]TierConfig) func(http.Handler) http.Handler {
	anonymous := func(r *http.Request) bool { return GetUserID(r.Context()) == "" }

	limiters := make(map[string]*RateLimiter, len(tiers))
	for role, tier := range tiers {
		limiters[role] = NewRateLimiter(rdb, RateLimitConfig{
			Limit:      PerMinute(tier.RequestsPerMinute, tier.BurstSize),
			KeyFunc:    KeyByUser,
			BypassFunc: anonymous,
		})
	}

	return func(next http.Handler) http.Handler {
		handlers := make(map[string]http.Handler, len(limiters))
		for role, rl := range limiters {
			handlers[role] = rl.Handler(next)
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if anonymous(r) {
				next.ServeHTTP(w, r)
				return
			}

			role := GetUserRole(r.Context())
			h, ok := handlers[role]
			if !ok {
				role = RoleClient
				h = handlers[RoleClient]
			}
			if h == nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Tier", role)
			h.ServeHTTP(w, r)
		})
	}
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return PerWindow(rate, burst, time.Minute)
}

// PerWindow allows rate requests per window with the given burst.
func PerWindow(rate, burst int, window time.Duration) redis_rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: window}
}
