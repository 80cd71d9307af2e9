package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/internal/services"
)

type RecipeHandler struct {
	service services.RecipeServiceInterface
}

func NewRecipeHandler(service services.RecipeServiceInterface) *RecipeHandler {
	return &RecipeHandler{service: service}
}

// List handles GET /api/user/saved-recipes
func (h *RecipeHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	recipes, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DataResponse{Success: true, Data: recipes})
}

// Save handles POST /api/user/saved-recipes
func (h *RecipeHandler) Save(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.SaveRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	recipe, err := h.service.Save(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.DataResponse{Success: true, Data: recipe})
}

// Delete handles DELETE /api/user/saved-recipes/:id
func (h *RecipeHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, ok := resourceID(c, "saved recipe")
	if !ok {
		return
	}

	if err := h.service.Remove(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
