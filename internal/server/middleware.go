package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// instrument records request metrics for endpoint.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.metrics.RecordHTTPRequest(endpoint, r.Method, wrapped.statusCode, time.Since(start))
	}
}

// limit applies the per-client rate limit when one is configured.
func (s *Server) limit(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next(w, r)
	}
}

// requireAgent rejects requests without a valid agent credential when auth
// is enforced.
func (s *Server) requireAgent(next http.HandlerFunc) http.HandlerFunc {
	if !s.cfg.RequireAuth || s.auth == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		agent, err := s.auth.Authenticate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), agentKey{}, agent)))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limiterIdleTTL is how long a client's limiter survives without requests.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientEntry
	lastSweep time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = max(1, int(rps))
	}
	return &clientLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*clientEntry),
	}
}

func (c *clientLimiter) allow(key string) bool {
	now := c.now()
	c.mu.Lock()
	e, ok := c.clients[key]
	if !ok {
		c.sweep(now)
		e = &clientEntry{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.clients[key] = e
	}
	e.lastSeen = now
	c.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// sweep drops idle clients, at most once per TTL. Callers hold mu.
func (c *clientLimiter) sweep(now time.Time) {
	if now.Sub(c.lastSweep) < limiterIdleTTL {
		return
	}
	c.lastSweep = now
	for key, e := range c.clients {
		if now.Sub(e.lastSeen) >= limiterIdleTTL {
			delete(c.clients, key)
		}
	}
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
