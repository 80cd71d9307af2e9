package services

import (
	"context"
	"strings"
	"time"

	"github.com/pantrykit/pantry-api/internal/models"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// InventoryService manages the ingredients in a user's pantry
type InventoryService struct {
	ingredients IngredientStore
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(ingredients IngredientStore) *InventoryService {
	return &InventoryService{ingredients: ingredients}
}

// List returns the user's pantry items
func (s *InventoryService) List(ctx context.Context, userID string) ([]*models.Ingredient, error) {
	return s.ingredients.ListByUser(ctx, userID)
}

// Add validates req and stores a new item for userID
func (s *InventoryService) Add(ctx context.Context, userID string, req *models.IngredientRequest) (*models.Ingredient, error) {
	ing, err := ingredientFromRequest(userID, req)
	if err != nil {
		return nil, err
	}
	return s.ingredients.Create(ctx, ing)
}

// Update replaces an item the user owns. Items of other users read as not found.
func (s *InventoryService) Update(ctx context.Context, userID, id string, req *models.IngredientRequest) (*models.Ingredient, error) {
	ing, err := ingredientFromRequest(userID, req)
	if err != nil {
		return nil, err
	}
	ing.ID = id
	return s.ingredients.Update(ctx, ing)
}

// Remove deletes an item the user owns
func (s *InventoryService) Remove(ctx context.Context, userID, id string) error {
	return s.ingredients.Delete(ctx, userID, id)
}

func ingredientFromRequest(userID string, req *models.IngredientRequest) (*models.Ingredient, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.ValidationError("name", "is required")
	}
	if req.Quantity < 0 {
		return nil, apperrors.ValidationError("quantity", "must not be negative")
	}

	ing := &models.Ingredient{
		UserID:   userID,
		Name:     name,
		Quantity: req.Quantity,
		Unit:     strings.TrimSpace(req.Unit),
		Category: strings.ToLower(strings.TrimSpace(req.Category)),
	}

	if req.ExpiresOn != "" {
		d, err := time.Parse(dateLayout, req.ExpiresOn)
		if err != nil {
			return nil, apperrors.ValidationError("expiresOn", "must be YYYY-MM-DD")
		}
		ing.ExpiresOn = &d
	}
	return ing, nil
}
