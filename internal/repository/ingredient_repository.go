package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/pkg/metrics"
)

const ingredientColumns = `id, user_id, name, quantity, unit, category, expires_on, created_at, updated_at`

// IngredientRepository handles pantry inventory
type IngredientRepository struct {
	pool *pgxpool.Pool
}

// NewIngredientRepository creates a new ingredient repository
func NewIngredientRepository(pool *pgxpool.Pool) *IngredientRepository {
	return &IngredientRepository{pool: pool}
}

func scanIngredient(row pgx.Row) (*models.Ingredient, error) {
	var i models.Ingredient
	if err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Quantity,
		&i.Unit,
		&i.Category,
		&i.ExpiresOn,
		&i.CreatedAt,
		&i.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &i, nil
}

// ListByUser returns a user's pantry, soonest expiry first
func (r *IngredientRepository) ListByUser(ctx context.Context, userID string) (_ []*models.Ingredient, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("ingredients.list", start, err) }()

	rows, err := r.pool.Query(ctx, `
		SELECT `+ingredientColumns+`
		FROM ingredients
		WHERE user_id = $1
		ORDER BY expires_on ASC NULLS LAST, name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	ingredients := make([]*models.Ingredient, 0)
	for rows.Next() {
		ing, scanErr := scanIngredient(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", scanErr)
		}
		ingredients = append(ingredients, ing)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingredients: %w", err)
	}
	return ingredients, nil
}

// Create inserts an ingredient
func (r *IngredientRepository) Create(ctx context.Context, ing *models.Ingredient) (_ *models.Ingredient, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("ingredients.create", start, err) }()

	created, err := scanIngredient(r.pool.QueryRow(ctx, `
		INSERT INTO ingredients (user_id, name, quantity, unit, category, expires_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+ingredientColumns,
		ing.UserID, ing.Name, ing.Quantity, ing.Unit, ing.Category, ing.ExpiresOn))
	if err != nil {
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}
	return created, nil
}

// CreateMany inserts several ingredients in one round trip
func (r *IngredientRepository) CreateMany(ctx context.Context, ingredients []*models.Ingredient) (err error) {
	if len(ingredients) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBOperation("ingredients.create_many", start, err) }()

	batch := &pgx.Batch{}
	for _, ing := range ingredients {
		batch.Queue(`
			INSERT INTO ingredients (user_id, name, quantity, unit, category, expires_on)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ing.UserID, ing.Name, ing.Quantity, ing.Unit, ing.Category, ing.ExpiresOn)
	}

	if err = r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to create ingredients: %w", err)
	}
	return nil
}

// Update replaces an ingredient owned by ing.UserID
func (r *IngredientRepository) Update(ctx context.Context, ing *models.Ingredient) (_ *models.Ingredient, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("ingredients.update", start, err) }()

	updated, err := scanIngredient(r.pool.QueryRow(ctx, `
		UPDATE ingredients
		SET name = $3, quantity = $4, unit = $5, category = $6, expires_on = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+ingredientColumns,
		ing.ID, ing.UserID, ing.Name, ing.Quantity, ing.Unit, ing.Category, ing.ExpiresOn))
	if err != nil {
		return nil, notFound(err, "ingredient")
	}
	return updated, nil
}

// Delete removes an ingredient owned by userID
func (r *IngredientRepository) Delete(ctx context.Context, userID, id string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("ingredients.delete", start, err) }()

	tag, err := r.pool.Exec(ctx, `DELETE FROM ingredients WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(fmt.Errorf("failed to delete ingredient: %w", err), "ingredient")
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "ingredient")
	}
	return nil
}
