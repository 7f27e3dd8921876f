package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/writespace/internal/apperror"
)

// RateLimiter throttles requests per client IP with a token bucket.
//
// TOKEN BUCKET:
// Each IP gets a bucket holding up to `burst` tokens, refilled at `perSecond`
// tokens per second. Every request takes one token; an empty bucket means 429.
//
// The map of limiters is the only mutable state, guarded by mu. Entries
// not seen for idleTTL are dropped on the next sweep so the map can't grow
// without bound.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor

	perSecond rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time

	now      func() time.Time
	writeErr func(http.ResponseWriter, error)
	logger   *slog.Logger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const defaultIdleTTL = 10 * time.Minute

// NewRateLimiter creates a limiter allowing perSecond requests per second per
// IP with the given burst. A perSecond of zero or less disables limiting.
// Rejected requests are answered by writeErr with apperror.RateLimited().
func NewRateLimiter(perSecond float64, burst int, writeErr func(http.ResponseWriter, error), logger *slog.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:  make(map[string]*visitor),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   defaultIdleTTL,
		now:       time.Now,
		writeErr:  writeErr,
		logger:    logger,
	}
}

// Allow reports whether a request from ip may proceed right now.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.perSecond <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.limiters[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// sweep drops idle visitors. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idleTTL {
		return
	}
	for ip, v := range rl.limiters {
		if now.Sub(v.lastSeen) >= rl.idleTTL {
			delete(rl.limiters, ip)
		}
	}
	rl.lastSweep = now
}

// Middleware rejects over-limit requests with a RateLimited error.
//
// The key is r.RemoteAddr. That is the socket peer unless chi's RealIP ran
// first, and the server only mounts RealIP when TRUST_PROXY is set, because
// otherwise any client could pick its own X-Forwarded-For.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			rl.logger.Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)

			w.Header().Set("Retry-After", "1")
			rl.writeErr(w, apperror.RateLimited())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. RealIP may already have replaced
// RemoteAddr with a bare address, in which case it is returned as is.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
