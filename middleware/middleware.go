// Package middleware implements the per-request edge pipeline: client IP
// extraction, rate limiting, session refresh, route protection and security
// headers. Order matters; routes wire these in the sequence documented on
// each constructor.
package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pollboard-backend/auth"
	"pollboard-backend/ratelimit"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Error flags carried on login redirects.
const (
	FlagSessionInvalid = "session_invalid"
	FlagSessionExpired = "session_expired"
	FlagAuthError      = "auth_error"
	FlagAdminRequired  = "admin_required"
)

// publicPrefixes are reachable without a session.
var publicPrefixes = []string{
	"/login",
	"/register",
	"/auth",
	"/api/auth",
	"/assets",
	"/favicon.ico",
	"/healthz",
}

// ClientIP returns the caller's IP: the direct connection address, else the
// first hop of X-Forwarded-For, else "unknown".
func ClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if i := strings.IndexAny(xff, ", "); i > 0 {
			return xff[:i]
		}
		return xff
	}
	return "unknown"
}

// RateLimit rejects with 429 once the caller's IP exhausts its window. It
// runs before any session work. Limiter backend errors fail open; the
// limiter is a protective control, not a correctness one.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), ClientIP(c))
		if err != nil {
			log.WithError(err).Warn("rate limiter unavailable, failing open")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// AuthBurst adds a per-IP token bucket on top of the fixed window for the
// credential endpoints, smoothing brute-force bursts.
func AuthBurst(rps float64, burst int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	return func(c *gin.Context) {
		ip := ClientIP(c)

		mu.Lock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[ip] = l
		}
		mu.Unlock()

		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// Session refreshes the caller's session through the provider and attaches
// the principal to the request context. The refresh is the first session
// operation in the request; nothing may run between reading the cookie and
// the provider call, since the cookie written back must reflect the
// refreshed state.
//
// A provider failure clears the cookie and fails with auth_error. A session
// whose absolute age exceeds maxAge is terminated and fails with
// session_expired even if its token is otherwise still valid.
func Session(gw *auth.Gateway, maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.SessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}

		session, err := gw.Provider().Refresh(c.Request.Context(), token)
		if err != nil {
			clearSessionCookie(c)
			if errors.Is(err, auth.ErrSessionNotFound) {
				failAuth(c, FlagSessionInvalid)
			} else {
				log.WithError(err).Error("session refresh failure")
				failAuth(c, FlagAuthError)
			}
			return
		}

		if time.Since(session.CreatedAt) > maxAge {
			_ = gw.SignOut(c.Request.Context(), token)
			clearSessionCookie(c)
			failAuth(c, FlagSessionExpired)
			return
		}

		setSessionCookie(c, session.Token, maxAge)
		user := session.User
		c.Set(auth.ContextSessionKey, session)
		c.Set(auth.ContextUserKey, &user)
		c.Next()
	}
}

// RequireAuth redirects unauthenticated requests for protected paths to the
// login page, preserving the originally requested path as the return target.
func RequireAuth(gw *auth.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path) || isPublicPollPath(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}
		if gw.CurrentUser(c) == nil {
			failAuth(c, FlagSessionInvalid)
			return
		}
		c.Next()
	}
}

// isPublicPollPath admits the share-link surface: the public poll read and
// the vote endpoint, which must accept anonymous voters when a poll permits
// them. Edit, update, delete and listings stay protected.
func isPublicPollPath(method, path string) bool {
	if !strings.HasPrefix(path, "/api/polls/") {
		return false
	}
	rest := strings.TrimPrefix(path, "/api/polls/")
	if rest == "" || rest == "mine" || strings.HasSuffix(rest, "/edit") {
		return false
	}
	switch {
	case method == http.MethodGet && !strings.Contains(rest, "/"):
		return true
	case method == http.MethodPost && strings.HasSuffix(rest, "/vote"):
		return true
	}
	return false
}

// RequireAdmin gates a route group on the admin flag.
func RequireAdmin(gw *auth.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := gw.RequireAdmin(c); err != nil {
			if isAPIPath(c.Request.URL.Path) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			} else {
				c.Redirect(http.StatusFound, "/login?error="+FlagAdminRequired)
				c.Abort()
			}
			return
		}
		c.Next()
	}
}

// SecurityHeaders attaches the response hardening headers to every response,
// redirects included, which is why it sets them before the handler runs.
func SecurityHeaders() gin.HandlerFunc {
	const csp = "default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval'; img-src 'self' data: https:"
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", csp)
		c.Next()
	}
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// failAuth terminates the request on an authentication failure: JSON 401 for
// API calls, login redirect with the error flag otherwise.
func failAuth(c *gin.Context, flag string) {
	if isAPIPath(c.Request.URL.Path) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": flag})
		return
	}
	target := "/login?error=" + flag + "&next=" + url.QueryEscape(c.Request.URL.Path)
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

func setSessionCookie(c *gin.Context, token string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, int(maxAge.Seconds()), "/", "", false, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
}
