package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// visitorIdleTTL is how long an IP may stay silent before its limiter is dropped.
const visitorIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorLimits tracks one token bucket per client IP.
type visitorLimits struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perMin    int
	lastSweep time.Time
	now       func() time.Time
}

func newVisitorLimits(perMin int) *visitorLimits {
	if perMin <= 0 {
		perMin = 100
	}
	return &visitorLimits{visitors: make(map[string]*visitor), perMin: perMin, now: time.Now}
}

// reserve reports whether ip may proceed and, if not, how long until it may.
func (v *visitorLimits) reserve(ip string) (bool, time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastSweep) > visitorIdleTTL {
		for k, vis := range v.visitors {
			if now.Sub(vis.lastSeen) > visitorIdleTTL {
				delete(v.visitors, k)
			}
		}
		v.lastSweep = now
	}

	vis, ok := v.visitors[ip]
	if !ok {
		// Burst covers a full minute's budget.
		vis = &visitor{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(v.perMin)), v.perMin)}
		v.visitors[ip] = vis
	}
	vis.lastSeen = now

	r := vis.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (v *visitorLimits) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.visitors)
}

// RateLimitMiddleware caps each client IP at perMin requests per minute.
func RateLimitMiddleware(perMin int) gin.HandlerFunc {
	limits := newVisitorLimits(perMin)
	return func(c *gin.Context) {
		ip := getClientIP(c)
		ok, wait := limits.reserve(ip)
		if !ok {
			zap.L().Warn("Rate limit exceeded", zap.String("ip", ip), zap.Duration("retryIn", wait))
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
