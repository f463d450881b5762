package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/shenulal/telematics-io-manager/api/handlers"
	"github.com/shenulal/telematics-io-manager/core/auth"
	"github.com/shenulal/telematics-io-manager/core/rbac"
)

const (
	loginLimiterTTL             = 10 * time.Minute
	loginLimiterCleanupInterval = time.Minute
	loginLimiterMaxBuckets      = 10000
)

type requestLimiter struct {
	mu              sync.Mutex
	buckets         map[string]*tokenBucket
	capacity        int
	refill          time.Duration
	ttl             time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	maxBuckets      int
}

type tokenBucket struct {
	tokens   int
	last     time.Time
	lastSeen time.Time
}

func newLimiter(capacity int, refill time.Duration) *requestLimiter {
	return &requestLimiter{
		buckets:         make(map[string]*tokenBucket),
		capacity:        capacity,
		refill:          refill,
		ttl:             loginLimiterTTL,
		cleanupInterval: loginLimiterCleanupInterval,
		maxBuckets:      loginLimiterMaxBuckets,
	}
}

func (l *requestLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if l.cleanupInterval > 0 && now.Sub(l.lastCleanup) >= l.cleanupInterval {
		l.cleanup(now)
		l.lastCleanup = now
	}
	tb, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &tokenBucket{tokens: l.capacity - 1, last: now, lastSeen: now}
		return true
	}
	tb.lastSeen = now
	if now.Sub(tb.last) >= l.refill {
		tb.tokens = l.capacity
		tb.last = now
	}
	if tb.tokens <= 0 {
		return false
	}
	tb.tokens--
	return true
}

func (l *requestLimiter) cleanup(now time.Time) {
	if l.ttl > 0 {
		for key, tb := range l.buckets {
			if now.Sub(tb.lastSeen) > l.ttl {
				delete(l.buckets, key)
			}
		}
	}
	if l.maxBuckets > 0 && len(l.buckets) > l.maxBuckets {
		for len(l.buckets) > l.maxBuckets {
			oldestKey := ""
			var oldest time.Time
			for key, tb := range l.buckets {
				if oldestKey == "" || tb.lastSeen.Before(oldest) {
					oldestKey = key
					oldest = tb.lastSeen
				}
			}
			if oldestKey == "" {
				break
			}
			delete(l.buckets, oldestKey)
		}
	}
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if s.cfg != nil && s.cfg.TLSEnabled {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags every request with a correlation id. An id
// supplied by a trusted upstream is kept, otherwise a fresh one is minted.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if rid == "" {
			if id, err := uuid.NewV4(); err == nil {
				rid = id.String()
			}
		}
		if rid != "" {
			w.Header().Set("X-Request-Id", rid)
			r.Header.Set("X-Request-Id", rid)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) clientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := s.resolveClientIP(r)
		ctx := context.WithValue(r.Context(), handlers.ClientIPContextKey, ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeEnvelopeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.logger != nil {
			user := "-"
			if id := auth.IdentityFromContext(r.Context()); id != nil {
				user = id.Username
			}
			s.logger.Printf("RESP %s %s user=%s status=%d dur=%s bytes=%d", r.Method, r.URL.Path, user, rec.status, time.Since(start), rec.size)
		}
		s.observeRequest(r.Method, rec.status, time.Since(start))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if s.logger != nil {
					s.logger.Errorf("panic %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// withAuth is the authorization gate: it accepts a bearer access token
// (header preferred, accessToken cookie fallback), loads the user, resolves
// the permission set fresh from the store, and attaches the identity to the
// request context. Any failure is a uniform 401.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(handlers.AccessTokenCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			s.authFail(w, r, "missing token")
			return
		}
		claims, err := s.tokens.Verify(token, auth.TokenTypeAccess)
		if err != nil {
			s.authFail(w, r, "invalid token")
			return
		}
		user, err := s.users.Get(r.Context(), claims.UserID())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil || !user.Active {
			s.authFail(w, r, "user inactive or missing")
			return
		}
		perms, err := s.perms.ResolveForUser(r.Context(), user.ID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		identity := &auth.Identity{
			UserID:      user.ID,
			Username:    user.Username,
			Email:       user.Email,
			Permissions: rbac.NewSet(perms),
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
	}
}

func (s *Server) authFail(w http.ResponseWriter, r *http.Request, reason string) {
	if s.logger != nil {
		s.logger.Printf("AUTH fail (%s) %s %s", reason, r.Method, r.URL.Path)
	}
	writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

const forbiddenMessage = "Forbidden: Insufficient permissions"

func (s *Server) requirePermission(perm rbac.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id := auth.IdentityFromContext(r.Context())
			if id == nil {
				writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !id.Permissions.Has(perm) {
				s.permFail(r, id.Username, string(perm))
				writeEnvelopeError(w, http.StatusForbidden, forbiddenMessage)
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

func (s *Server) requireAnyPermission(perms ...rbac.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id := auth.IdentityFromContext(r.Context())
			if id == nil {
				writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !id.Permissions.HasAny(perms...) {
				s.permFail(r, id.Username, "any-of")
				writeEnvelopeError(w, http.StatusForbidden, forbiddenMessage)
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

// requireAdminOrPermission grants access when the identity holds perm, or any
// permission from the administrative family (users.*, roles.*).
func (s *Server) requireAdminOrPermission(perm rbac.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id := auth.IdentityFromContext(r.Context())
			if id == nil {
				writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !id.Permissions.Has(perm) && !id.Permissions.HasAdminFamily() {
				s.permFail(r, id.Username, string(perm)+" or admin family")
				writeEnvelopeError(w, http.StatusForbidden, forbiddenMessage)
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

func (s *Server) permFail(r *http.Request, username, need string) {
	if s.logger != nil {
		s.logger.Printf("PERM fail %s %s user=%s need=%s", r.Method, r.URL.Path, username, need)
	}
}

// rateLimitLogin buckets by client address and by submitted username, so a
// distributed guess against one account is throttled too.
func (s *Server) rateLimitLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := s.resolveClientIP(r)
		if !s.loginLimiter.allow("ip:" + ip) {
			writeEnvelopeError(w, http.StatusTooManyRequests, "Too many login attempts")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (s *Server) resolveClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if s.cfg == nil || len(s.cfg.Security.TrustedProxies) == 0 {
		return host
	}
	trusted := false
	for _, p := range s.cfg.Security.TrustedProxies {
		if strings.TrimSpace(p) == host {
			trusted = true
			break
		}
	}
	if !trusted {
		return host
	}
	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" {
		return host
	}
	parts := strings.Split(fwd, ",")
	return strings.TrimSpace(parts[0])
}
