package http

import (
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// HTTPObserver receives per-request timing.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, took time.Duration)
}

// requestIDMiddleware propagates or assigns X-Request-ID and puts a request
// scoped logger into the request context.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)

		ctx := logger.WithContext(c.Request.Context(), s.logger.WithRequestID(id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// loggingMiddleware logs every request except probes and metrics scrapes.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	skip := map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		took := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if s.observer != nil {
			s.observer.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), took)
		}
		if skip[c.Request.URL.Path] {
			return
		}

		s.logger.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("route", route),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Int64("duration_ms", took.Milliseconds()),
			logger.String("ip", c.ClientIP()),
			logger.String("request_id", requestID(c)),
		)
	}
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", c.Request.URL.Path),
					logger.String("request_id", requestID(c)),
				)
				writeJSONError(c, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		c.Next()
	}
}

// securityHeadersMiddleware sets conservative response headers.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// bodyLimitMiddleware caps request bodies.
func bodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// ipRateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than ttl are dropped on the next sweep.
type ipRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if burst <= 0 {
		burst = max(int(rps), 1)
	}
	return &ipRateLimiter{
		buckets: make(map[string]*ipBucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops idle buckets and reports how many remain.
func (l *ipRateLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.ttl)
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
	return len(l.buckets)
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	var calls int
	var mu sync.Mutex

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !s.limiter.allow(ip) {
			c.Header("Retry-After", "1")
			writeJSONError(c, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}

		mu.Lock()
		calls++
		sweep := calls%1024 == 0
		mu.Unlock()
		if sweep {
			s.limiter.sweep()
		}
		c.Next()
	}
}
