package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/internal/middleware"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/internal/services"
)

// MagicLinkHandler handles the passwordless sign-in endpoints
type MagicLinkHandler struct {
	service services.MagicLinkServiceInterface
	cookies middleware.CookieOptions
}

// NewMagicLinkHandler creates a new MagicLinkHandler
func NewMagicLinkHandler(service services.MagicLinkServiceInterface, cookies middleware.CookieOptions) *MagicLinkHandler {
	return &MagicLinkHandler{
		service: service,
		cookies: cookies,
	}
}

// RequestLink handles POST /api/auth/magic-link
// Issues a login token and emails the link
func (h *MagicLinkHandler) RequestLink(c *gin.Context) {
	var req models.RequestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.service.RequestLink(c.Request.Context(), services.RequestLinkInput{
		Email:          req.Email,
		Purpose:        req.Purpose,
		RequestID:      req.RequestID,
		CallbackURL:    req.CallbackURL,
		RecaptchaToken: req.RecaptchaToken,
		RemoteIP:       c.ClientIP(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Poll handles GET /api/auth/magic-link/poll?requestId=
// Lets the device that asked for the link wait for it to be clicked
func (h *MagicLinkHandler) Poll(c *gin.Context) {
	resp, err := h.service.Poll(c.Request.Context(), c.Query("requestId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Verify handles GET /api/auth/magic-link/verify?token=&callbackUrl=
// Consumes the token, sets the session cookie and sends browsers on to the callback
func (h *MagicLinkHandler) Verify(c *gin.Context) {
	result, err := h.service.Consume(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, result.Token, h.cookies)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, models.SessionResponse{Success: true, Session: result.Session()})
		return
	}

	callback, ok := services.SanitizeCallbackURL(c.Query("callbackUrl"))
	if !ok {
		callback = services.DefaultCallbackPath
	}
	c.Redirect(http.StatusSeeOther, callback)
}

// Exchange handles POST /api/auth/magic-link/exchange
// Trades a consumed token for a session on the polling device
func (h *MagicLinkHandler) Exchange(c *gin.Context) {
	var req models.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.service.Exchange(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, result.Token, h.cookies)
	c.JSON(http.StatusOK, models.SessionResponse{Success: true, Session: result.Session()})
}

// Logout handles POST /api/auth/logout
func (h *MagicLinkHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.cookies)
	c.JSON(http.StatusOK, models.LogoutResponse{Success: true})
}

// Session handles GET /api/auth/session
func (h *MagicLinkHandler) Session(c *gin.Context) {
	claims, err := middleware.GetSession(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	session := &models.Session{UserID: claims.UserID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Unix()
	}
	c.JSON(http.StatusOK, models.SessionResponse{Success: true, Session: session})
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
