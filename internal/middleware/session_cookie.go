package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/pkg/jwt"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "pantry_session"

	// SessionContextKey is the key used to store session claims in the gin context
	SessionContextKey = "pantry_session"
)

var (
	ErrSessionNotFound = errors.New("session not found in context")
	ErrInvalidSession  = errors.New("invalid session type")
)

// CookieOptions controls how the session cookie is written
type CookieOptions struct {
	Domain string
	Secure bool
	TTL    time.Duration
}

// GetSession extracts session claims from context
func GetSession(c *gin.Context) (*jwt.SessionClaims, error) {
	val, exists := c.Get(SessionContextKey)
	if !exists {
		return nil, ErrSessionNotFound
	}

	claims, ok := val.(*jwt.SessionClaims)
	if !ok {
		return nil, ErrInvalidSession
	}

	return claims, nil
}

// SetSessionCookie sets the session cookie
func SetSessionCookie(c *gin.Context, token string, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		SessionCookieName,
		token,
		int(opts.TTL.Seconds()),
		"/",
		opts.Domain,
		opts.Secure,
		true, // HttpOnly
	)
}

// ClearSessionCookie clears the session cookie
func ClearSessionCookie(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		SessionCookieName,
		"",
		-1,
		"/",
		opts.Domain,
		opts.Secure,
		true, // HttpOnly
	)
}
