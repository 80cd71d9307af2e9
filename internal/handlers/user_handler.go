package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/internal/middleware"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/internal/services"
)

// UserHandler serves the signed-in user's account
type UserHandler struct {
	service services.UserServiceInterface
	cookies middleware.CookieOptions
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service services.UserServiceInterface, cookies middleware.CookieOptions) *UserHandler {
	return &UserHandler{service: service, cookies: cookies}
}

// Me handles GET /api/user/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DataResponse{Success: true, Data: user})
}

// Update handles PATCH /api/user/me
func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.service.UpdateName(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DataResponse{Success: true, Data: user})
}

// Delete handles DELETE /api/user/me
// Removes the account and signs this device out
func (h *UserHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	middleware.ClearSessionCookie(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
