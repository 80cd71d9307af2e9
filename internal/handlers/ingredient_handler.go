package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/internal/services"
)

// IngredientHandler serves the pantry inventory
type IngredientHandler struct {
	service services.InventoryServiceInterface
}

// NewIngredientHandler creates a new IngredientHandler
func NewIngredientHandler(service services.InventoryServiceInterface) *IngredientHandler {
	return &IngredientHandler{service: service}
}

// List handles GET /api/ingredients
func (h *IngredientHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DataResponse{Success: true, Data: items})
}

// Create handles POST /api/ingredients
func (h *IngredientHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.service.Add(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.DataResponse{Success: true, Data: item})
}

// Update handles PUT /api/ingredients/:id
func (h *IngredientHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, ok := resourceID(c, "ingredient")
	if !ok {
		return
	}

	var req models.IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.service.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DataResponse{Success: true, Data: item})
}

// Delete handles DELETE /api/ingredients/:id
func (h *IngredientHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, ok := resourceID(c, "ingredient")
	if !ok {
		return
	}

	if err := h.service.Remove(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
