package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	redisclient "github.com/joy095/parking/config/redis"
	"github.com/joy095/parking/logger"
	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Example:
//
//	r.POST("/login", middleware.NewRateLimiter("10-2m", "login"), uc.Login)
//	r.POST("/resend-otp", middleware.CombinedRateLimiter("resend_otp", "1-1m", "5-1h"), uc.ResendOTP)

// rateLimitKey identifies the caller: the authenticated person when the auth
// middleware has run, otherwise the client IP.
func rateLimitKey(c *gin.Context) string {
	if sub := c.GetString("sub"); sub != "" {
		return "user:" + sub
	}
	return "ip:" + c.ClientIP()
}

func createRedisStore(c *gin.Context, routeID string, period time.Duration) (limiter.Store, error) {
	rdb, err := redisclient.GetRedisClient(c)
	if err != nil {
		return nil, err
	}

	store, err := redisstore.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix:          fmt.Sprintf("rate_limiter:%s", routeID),
		MaxRetry:        3,
		CleanUpInterval: period,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for route %s: %w", routeID, err)
	}
	return store, nil
}

// ParseCustomRate allows formats like "10-2m", "30-20m", "5-1h", "20-10s".
func ParseCustomRate(rateStr string) (limiter.Rate, error) {
	parts := strings.Split(rateStr, "-")
	if len(parts) != 2 {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	limit, err := strconv.Atoi(parts[0])
	if err != nil || limit <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %s", parts[0])
	}

	durationStr := parts[1]
	if len(durationStr) < 2 {
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", durationStr)
	}
	units := map[string]time.Duration{"s": time.Second, "m": time.Minute, "h": time.Hour}
	unit, ok := units[durationStr[len(durationStr)-1:]]
	if !ok {
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", durationStr)
	}
	n, err := strconv.Atoi(durationStr[:len(durationStr)-1])
	if err != nil || n <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid duration: %s", durationStr)
	}

	return limiter.Rate{Period: time.Duration(n) * unit, Limit: int64(limit)}, nil
}

// rateLimiter lazily builds its store on the first request so routes can be
// registered before Redis is reachable. Without Redis it lets requests through.
type rateLimiter struct {
	routeID string
	rate    limiter.Rate

	mu   sync.Mutex
	inst *limiter.Limiter
}

func (rl *rateLimiter) instance(c *gin.Context) *limiter.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.inst == nil {
		store, err := createRedisStore(c, rl.routeID, rl.rate.Period)
		if err != nil {
			logger.WarnLogger.Warnf("Rate limiter for %s disabled: %v", rl.routeID, err)
			return nil
		}
		rl.inst = limiter.New(store, rl.rate)
	}
	return rl.inst
}

func (rl *rateLimiter) allow(c *gin.Context) bool {
	inst := rl.instance(c)
	if inst == nil {
		return true
	}

	ctx, err := inst.Get(c, rateLimitKey(c))
	if err != nil {
		logger.ErrorLogger.Errorf("Rate limiter for %s failed: %v", rl.routeID, err)
		return true
	}

	c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))
	return !ctx.Reached
}

// NewRateLimiter creates middleware with custom periods like "10-2m" for a route.
func NewRateLimiter(rateStr, routeID string) gin.HandlerFunc {
	return CombinedRateLimiter(routeID, rateStr)
}

// CombinedRateLimiter enforces every rate at once; the request is rejected
// as soon as one of them is exhausted.
func CombinedRateLimiter(routeID string, rateStrings ...string) gin.HandlerFunc {
	var limiters []*rateLimiter
	for i, rateStr := range rateStrings {
		rate, err := ParseCustomRate(rateStr)
		if err != nil {
			logger.ErrorLogger.Errorf("Error parsing rate for route %s: %v", routeID, err)
			continue
		}
		limiters = append(limiters, &rateLimiter{routeID: fmt.Sprintf("%s_%d", routeID, i), rate: rate})
	}

	return func(c *gin.Context) {
		for _, rl := range limiters {
			if !rl.allow(c) {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
				return
			}
		}
		c.Next()
	}
}
