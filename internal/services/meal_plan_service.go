package services

import (
	"context"
	"strings"
	"time"

	"github.com/pantrykit/pantry-api/internal/models"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
)

// maxPlanRange caps how many days one listing may cover
const maxPlanRange = 62 * 24 * time.Hour

// MealPlanService manages a user's meal calendar
type MealPlanService struct {
	plans   MealPlanStore
	recipes SavedRecipeStore
	now     func() time.Time
}

// NewMealPlanService creates a new MealPlanService
func NewMealPlanService(plans MealPlanStore, recipes SavedRecipeStore) *MealPlanService {
	return &MealPlanService{plans: plans, recipes: recipes, now: time.Now}
}

// List returns meals between from and to (YYYY-MM-DD, inclusive).
// Missing bounds default to the current week.
func (s *MealPlanService) List(ctx context.Context, userID, from, to string) ([]*models.MealPlan, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)

	start := today
	if from != "" {
		d, err := time.Parse(dateLayout, from)
		if err != nil {
			return nil, apperrors.ValidationError("from", "must be YYYY-MM-DD")
		}
		start = d
	}

	end := start.AddDate(0, 0, 6)
	if to != "" {
		d, err := time.Parse(dateLayout, to)
		if err != nil {
			return nil, apperrors.ValidationError("to", "must be YYYY-MM-DD")
		}
		end = d
	}

	if end.Before(start) {
		return nil, apperrors.ValidationError("to", "must not be before from")
	}
	if end.Sub(start) > maxPlanRange {
		return nil, apperrors.ValidationError("to", "range is too long")
	}

	return s.plans.ListRange(ctx, userID, start, end)
}

// Add schedules a meal. A referenced recipe must belong to the user.
func (s *MealPlanService) Add(ctx context.Context, userID string, req *models.MealPlanRequest) (*models.MealPlan, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, apperrors.ValidationError("date", "must be YYYY-MM-DD")
	}

	meal := strings.ToLower(strings.TrimSpace(req.Meal))
	if !validMealSlot(meal) {
		return nil, apperrors.ValidationError("meal", "must be breakfast, lunch, dinner or snack")
	}

	plan := &models.MealPlan{
		UserID: userID,
		Date:   date,
		Meal:   meal,
		Notes:  strings.TrimSpace(req.Notes),
	}

	if req.RecipeID != "" {
		if _, err := s.recipes.GetByID(ctx, userID, req.RecipeID); err != nil {
			return nil, err
		}
		recipeID := req.RecipeID
		plan.RecipeID = &recipeID
	}

	return s.plans.Create(ctx, plan)
}

func (s *MealPlanService) Remove(ctx context.Context, userID, id string) error {
	return s.plans.Delete(ctx, userID, id)
}

func validMealSlot(meal string) bool {
	for _, slot := range models.MealSlots {
		if slot == meal {
			return true
		}
	}
	return false
}
