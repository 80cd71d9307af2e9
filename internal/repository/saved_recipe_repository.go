package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pantrykit/pantry-api/internal/models"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/metrics"
)

const savedRecipeColumns = `id, user_id, title, slug, source_url, ingredients, instructions, created_at, updated_at`

// SavedRecipeRepository handles bookmarked recipes
type SavedRecipeRepository struct {
	pool *pgxpool.Pool
}

// NewSavedRecipeRepository creates a new saved recipe repository
func NewSavedRecipeRepository(pool *pgxpool.Pool) *SavedRecipeRepository {
	return &SavedRecipeRepository{pool: pool}
}

func scanSavedRecipe(row pgx.Row) (*models.SavedRecipe, error) {
	var r models.SavedRecipe
	if err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Title,
		&r.Slug,
		&r.SourceURL,
		&r.Ingredients,
		&r.Instructions,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	return &r, nil
}

// ListByUser returns saved recipes, newest first
func (r *SavedRecipeRepository) ListByUser(ctx context.Context, userID string) (_ []*models.SavedRecipe, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("saved_recipes.list", start, err) }()

	rows, err := r.pool.Query(ctx, `
		SELECT `+savedRecipeColumns+`
		FROM saved_recipes
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]*models.SavedRecipe, 0)
	for rows.Next() {
		recipe, scanErr := scanSavedRecipe(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan saved recipe: %w", scanErr)
		}
		recipes = append(recipes, recipe)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved recipes: %w", err)
	}
	return recipes, nil
}

// GetByID fetches one of the user's recipes
func (r *SavedRecipeRepository) GetByID(ctx context.Context, userID, id string) (_ *models.SavedRecipe, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("saved_recipes.get", start, err) }()

	recipe, err := scanSavedRecipe(r.pool.QueryRow(ctx,
		`SELECT `+savedRecipeColumns+` FROM saved_recipes WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, "saved recipe")
	}
	return recipe, nil
}

// Create inserts a recipe. A slug already used by this user returns ErrConflict.
func (r *SavedRecipeRepository) Create(ctx context.Context, recipe *models.SavedRecipe) (_ *models.SavedRecipe, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("saved_recipes.create", start, err) }()

	ingredients := recipe.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}

	created, err := scanSavedRecipe(r.pool.QueryRow(ctx, `
		INSERT INTO saved_recipes (user_id, title, slug, source_url, ingredients, instructions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+savedRecipeColumns,
		recipe.UserID, recipe.Title, recipe.Slug, recipe.SourceURL, ingredients, recipe.Instructions))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("slug %q: %w", recipe.Slug, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}
	return created, nil
}

// Delete removes one of the user's recipes
func (r *SavedRecipeRepository) Delete(ctx context.Context, userID, id string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("saved_recipes.delete", start, err) }()

	tag, err := r.pool.Exec(ctx, `DELETE FROM saved_recipes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(fmt.Errorf("failed to delete saved recipe: %w", err), "saved recipe")
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "saved recipe")
	}
	return nil
}
