package services

import (
	"context"
	"errors"
	"strings"

	"github.com/pantrykit/pantry-api/internal/models"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/slug"
	"go.uber.org/zap"
)

// maxSlugAttempts bounds the numbered suffixes tried for a duplicate title
const maxSlugAttempts = 5

// RecipeService manages saved recipes
type RecipeService struct {
	recipes SavedRecipeStore
}

// NewRecipeService creates a new RecipeService
func NewRecipeService(recipes SavedRecipeStore) *RecipeService {
	return &RecipeService{recipes: recipes}
}

func (s *RecipeService) List(ctx context.Context, userID string) ([]*models.SavedRecipe, error) {
	return s.recipes.ListByUser(ctx, userID)
}

// Save bookmarks a recipe under a slug unique to the user. Titles that collide
// get a numeric suffix.
func (s *RecipeService) Save(ctx context.Context, userID string, req *models.SaveRecipeRequest) (*models.SavedRecipe, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.ValidationError("title", "is required")
	}

	ingredients := make([]string, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}

	recipe := &models.SavedRecipe{
		UserID:       userID,
		Title:        title,
		SourceURL:    strings.TrimSpace(req.SourceURL),
		Ingredients:  ingredients,
		Instructions: req.Instructions,
	}

	var lastErr error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		suffix := 0
		if attempt > 0 {
			suffix = attempt + 1
		}
		recipe.Slug = slug.GenerateRecipeSlug(title, suffix)
		saved, err := s.recipes.Create(ctx, recipe)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}

	logger.Warn("Gave up finding a free recipe slug",
		zap.String("user_id", userID),
		zap.String("title", title))
	return nil, lastErr
}

func (s *RecipeService) Remove(ctx context.Context, userID, id string) error {
	return s.recipes.Delete(ctx, userID, id)
}
