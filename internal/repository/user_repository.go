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

const userColumns = `id, email, name, email_verified_at, created_at, updated_at`

// UserRepository handles account data access
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.EmailVerifiedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches an account by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (_ *models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("users.get_by_id", start, err) }()

	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// GetByEmail fetches an account by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (_ *models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("users.get_by_email", start, err) }()

	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// Exists reports whether an account with id is present
func (r *UserRepository) Exists(ctx context.Context, id string) (_ bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("users.exists", start, err) }()

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Create inserts an account, or returns the existing one when the email is taken.
// Concurrent sign-ups for the same address therefore converge on one row.
func (r *UserRepository) Create(ctx context.Context, email string, verifiedAt *time.Time) (_ *models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("users.create", start, err) }()

	query := `
		INSERT INTO users (email, email_verified_at)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
			SET email_verified_at = COALESCE(users.email_verified_at, EXCLUDED.email_verified_at),
				updated_at = NOW()
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, email, verifiedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// MarkEmailVerified sets email_verified_at if it is not set yet
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) (_ *models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("users.mark_email_verified", start, err) }()

	query := `
		UPDATE users
		SET email_verified_at = COALESCE(email_verified_at, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, at))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// UpdateName changes the display name
func (r *UserRepository) UpdateName(ctx context.Context, id, name string) (_ *models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("users.update_name", start, err) }()

	user, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
		id, name))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// Delete removes an account; pantry data cascades
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("users.delete", start, err) }()

	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "user")
	}
	return nil
}
