package middleware

import (
	"net"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/metrics"
	"github.com/ukydev/maintenance-hub/internal/ratelimit"
)

// RateLimit throttles a route per client IP. scope separates the windows of
// different routes sharing one limiter. Limiter failures let the request
// through.
func RateLimit(limiter ratelimit.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), scope+":"+getClientIP(r))
			if err != nil {
				log.WithError(err).WithField("scope", scope).Warn("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.RateLimited.WithLabelValues(scope).Inc()
				writeError(w, http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP prefers the proxy headers over the socket address.
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
