package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/harveywai/thermopanel/pkg/security"
)

// ACLMiddleware rejects clients outside the allowlist while the ACL setting
// is enabled.
func ACLMiddleware(settings *security.Store, allowed []string) gin.HandlerFunc {
	allow := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		allow[ip] = struct{}{}
	}

	return func(c *gin.Context) {
		if settings.Get().ACL {
			if _, ok := allow[c.ClientIP()]; !ok {
				Reject(c, http.StatusForbidden, "Unauthorized access: IP not in ACL")
				return
			}
		}

		c.Next()
	}
}

// limiterIdleTTL is the minimum time a client's bucket is kept without requests.
const limiterIdleTTL = 5 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets of clients idle
// for longer than it takes to refill them are dropped, so a dropped bucket is
// indistinguishable from a full one.
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

// NewRateLimiter allows rps requests per second per client, with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	idle := limiterIdleTTL
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}

	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether the client may make a request now.
func (l *RateLimiter) Allow(client string) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	cl, ok := l.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = cl
	}
	cl.lastSeen = now
	l.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// sweep drops idle clients. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	for client, cl := range l.clients {
		if now.Sub(cl.lastSeen) >= l.idle {
			delete(l.clients, client)
		}
	}
	l.lastSweep = now
}

// Middleware throttles clients while the DoS protection setting is enabled.
func (l *RateLimiter) Middleware(settings *security.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if settings.Get().DosProtection && !l.Allow(c.ClientIP()) {
			Reject(c, http.StatusTooManyRequests, "Too many requests.")
			return
		}

		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("client", c.ClientIP()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
