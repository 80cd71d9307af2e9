package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/internal/services"
)

type MealPlanHandler struct {
	service services.MealPlanServiceInterface
}

func NewMealPlanHandler(service services.MealPlanServiceInterface) *MealPlanHandler {
	return &MealPlanHandler{service: service}
}

// List handles GET /api/user/meal-plans?from=&to=
func (h *MealPlanHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	plans, err := h.service.List(c.Request.Context(), userID, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DataResponse{Success: true, Data: plans})
}

// Create handles POST /api/user/meal-plans
func (h *MealPlanHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.MealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	plan, err := h.service.Add(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.DataResponse{Success: true, Data: plan})
}

// Delete handles DELETE /api/user/meal-plans/:id
func (h *MealPlanHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, ok := resourceID(c, "meal plan")
	if !ok {
		return
	}

	if err := h.service.Remove(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
