package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/pkg/jwt"
	"github.com/pantrykit/pantry-api/pkg/metrics"
)

// DefaultLoginPath is where unauthenticated visitors are sent
const DefaultLoginPath = "/login"

// SessionVerifier validates a raw session token
type SessionVerifier interface {
	Verify(ctx context.Context, raw string) (*jwt.SessionClaims, error)
}

// GateRule protects every path under Prefix. An empty Methods list protects all methods.
type GateRule struct {
	Prefix  string
	Methods []string
}

// Matches reports whether the rule covers the request.
// Prefixes match on segment boundaries: /saved covers /saved/1 but not /savedsearch.
func (r GateRule) Matches(method, path string) bool {
	prefix := strings.TrimSuffix(r.Prefix, "/")
	if path != prefix && !strings.HasPrefix(path, prefix+"/") {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// DefaultGateRules lists the pages and API routes that need a signed-in user
func DefaultGateRules() []GateRule {
	return []GateRule{
		{Prefix: "/dashboard"},
		{Prefix: "/inventory"},
		{Prefix: "/saved"},
		{Prefix: "/settings"},
		{Prefix: "/api/user"},
		{Prefix: "/api/ingredients", Methods: []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}},
	}
}

// SessionGate redirects requests to protected paths that carry no valid session
// to loginPath?callbackUrl=<original path>. Other requests pass untouched.
func SessionGate(verifier SessionVerifier, rules []GateRule, loginPath string) gin.HandlerFunc {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	return func(c *gin.Context) {
		if !protected(rules, c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		raw := rawSessionToken(c)
		if raw == "" {
			redirectToLogin(c, loginPath, "missing")
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			_ = c.Error(fmt.Errorf("invalid session token: %w", err)) //nolint:errcheck
			redirectToLogin(c, loginPath, "invalid")
			return
		}
		if claims.Invalid {
			_ = c.Error(fmt.Errorf("session for deleted account %s", claims.UserID)) //nolint:errcheck
			redirectToLogin(c, loginPath, "deleted")
			return
		}

		metrics.SessionGateDecisions.WithLabelValues("allow").Inc()
		c.Set(SessionContextKey, claims)
		c.Next()
	}
}

// OptionalSession attaches the session claims when a valid token is present
// and never blocks the request
func OptionalSession(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(SessionContextKey); exists {
			c.Next()
			return
		}

		if raw := rawSessionToken(c); raw != "" {
			if claims, err := verifier.Verify(c.Request.Context(), raw); err == nil && !claims.Invalid {
				c.Set(SessionContextKey, claims)
			}
		}
		c.Next()
	}
}

func protected(rules []GateRule, method, path string) bool {
	for _, r := range rules {
		if r.Matches(method, path) {
			return true
		}
	}
	return false
}

// rawSessionToken reads the session cookie, falling back to a bearer token
func rawSessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func redirectToLogin(c *gin.Context, loginPath, reason string) {
	metrics.SessionGateDecisions.WithLabelValues("redirect_" + reason).Inc()

	target := loginPath + "?callbackUrl=" + url.QueryEscape(c.Request.URL.RequestURI())
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
