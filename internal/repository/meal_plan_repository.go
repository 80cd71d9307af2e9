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

const mealPlanColumns = `id, user_id, plan_date, meal, recipe_id::text, notes, created_at, updated_at`

// MealPlanRepository handles planned meals
type MealPlanRepository struct {
	pool *pgxpool.Pool
}

// NewMealPlanRepository creates a new meal plan repository
func NewMealPlanRepository(pool *pgxpool.Pool) *MealPlanRepository {
	return &MealPlanRepository{pool: pool}
}

func scanMealPlan(row pgx.Row) (*models.MealPlan, error) {
	var p models.MealPlan
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Date,
		&p.Meal,
		&p.RecipeID,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListRange returns meals planned between from and to inclusive
func (r *MealPlanRepository) ListRange(ctx context.Context, userID string, from, to time.Time) (_ []*models.MealPlan, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("meal_plans.list", start, err) }()

	rows, err := r.pool.Query(ctx, `
		SELECT `+mealPlanColumns+`
		FROM meal_plans
		WHERE user_id = $1 AND plan_date BETWEEN $2 AND $3
		ORDER BY plan_date ASC,
			CASE meal WHEN 'breakfast' THEN 1 WHEN 'lunch' THEN 2 WHEN 'dinner' THEN 3 ELSE 4 END`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	plans := make([]*models.MealPlan, 0)
	for rows.Next() {
		plan, scanErr := scanMealPlan(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", scanErr)
		}
		plans = append(plans, plan)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal plans: %w", err)
	}
	return plans, nil
}

// Create inserts a planned meal. An unknown recipe id returns ErrNotFound.
func (r *MealPlanRepository) Create(ctx context.Context, plan *models.MealPlan) (_ *models.MealPlan, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("meal_plans.create", start, err) }()

	created, err := scanMealPlan(r.pool.QueryRow(ctx, `
		INSERT INTO meal_plans (user_id, plan_date, meal, recipe_id, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+mealPlanColumns,
		plan.UserID, plan.Date, plan.Meal, plan.RecipeID, plan.Notes))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.NotFoundError("recipe")
		}
		return nil, fmt.Errorf("failed to create meal plan: %w", err)
	}
	return created, nil
}

// Delete removes one of the user's planned meals
func (r *MealPlanRepository) Delete(ctx context.Context, userID, id string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("meal_plans.delete", start, err) }()

	tag, err := r.pool.Exec(ctx, `DELETE FROM meal_plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(fmt.Errorf("failed to delete meal plan: %w", err), "meal plan")
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "meal plan")
	}
	return nil
}
