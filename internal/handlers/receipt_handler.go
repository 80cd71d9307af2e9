package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/internal/services"
)

// ReceiptHandler serves receipt scanning
type ReceiptHandler struct {
	service services.ReceiptServiceInterface
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(service services.ReceiptServiceInterface) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// Scan handles POST /api/user/receipts
// Accepts a base64 photo, returns the parsed lines
func (h *ReceiptHandler) Scan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.ReceiptScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	scan, err := h.service.Scan(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.DataResponse{Success: true, Data: scan})
}

// List handles GET /api/user/receipts
func (h *ReceiptHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	scans, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DataResponse{Success: true, Data: scans})
}
