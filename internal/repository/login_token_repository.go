package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/pkg/metrics"
)

const loginTokenColumns = `id, token, email, request_id, user_id::text, purpose,
	expires_at, used_at, exchanged_at, created_at, updated_at`

// LoginTokenRepository stores magic link tokens
type LoginTokenRepository struct {
	pool *pgxpool.Pool
}

// NewLoginTokenRepository creates a new login token repository
func NewLoginTokenRepository(pool *pgxpool.Pool) *LoginTokenRepository {
	return &LoginTokenRepository{pool: pool}
}

func scanLoginToken(row pgx.Row) (*models.LoginToken, error) {
	var t models.LoginToken
	var purpose string
	if err := row.Scan(
		&t.ID,
		&t.Token,
		&t.Email,
		&t.RequestID,
		&t.UserID,
		&purpose,
		&t.ExpiresAt,
		&t.UsedAt,
		&t.ExchangedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Purpose = models.TokenPurpose(purpose)
	return &t, nil
}

// Create inserts a new token and fills in its generated fields
func (r *LoginTokenRepository) Create(ctx context.Context, token *models.LoginToken) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("login_tokens.create", start, err) }()

	query := `
		INSERT INTO login_tokens (token, email, request_id, user_id, purpose, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		token.Token,
		token.Email,
		token.RequestID,
		token.UserID,
		string(token.Purpose),
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create login token: %w", err)
	}
	return nil
}

// GetByRequestID returns the newest token issued for a request id
func (r *LoginTokenRepository) GetByRequestID(ctx context.Context, requestID string) (_ *models.LoginToken, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("login_tokens.get_by_request_id", start, err) }()

	query := `SELECT ` + loginTokenColumns + `
		FROM login_tokens
		WHERE request_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	token, err := scanLoginToken(r.pool.QueryRow(ctx, query, requestID))
	if err != nil {
		return nil, notFound(err, "login token")
	}
	return token, nil
}

// GetByToken looks a token up by its secret value
func (r *LoginTokenRepository) GetByToken(ctx context.Context, value string) (_ *models.LoginToken, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("login_tokens.get_by_token", start, err) }()

	query := `SELECT ` + loginTokenColumns + ` FROM login_tokens WHERE token = $1`

	token, err := scanLoginToken(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		return nil, notFound(err, "login token")
	}
	return token, nil
}

// MarkUsed consumes a pending token in a single conditional write.
// ok is false when the token is missing, expired or already used; the caller reads
// the row to tell those apart.
func (r *LoginTokenRepository) MarkUsed(ctx context.Context, value string, now time.Time) (_ *models.LoginToken, ok bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("login_tokens.mark_used", start, err) }()

	query := `
		UPDATE login_tokens
		SET used_at = $2, updated_at = $2
		WHERE token = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING ` + loginTokenColumns

	token, err := scanLoginToken(r.pool.QueryRow(ctx, query, value, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to mark login token used: %w", err)
	}
	return token, true, nil
}

// MarkExchanged records that a consumed token was traded for a session.
// ok is false when the token is not consumed, expired or already exchanged.
func (r *LoginTokenRepository) MarkExchanged(ctx context.Context, value string, now time.Time) (_ *models.LoginToken, ok bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("login_tokens.mark_exchanged", start, err) }()

	query := `
		UPDATE login_tokens
		SET exchanged_at = $2, updated_at = $2
		WHERE token = $1
			AND used_at IS NOT NULL
			AND exchanged_at IS NULL
			AND expires_at > $2
		RETURNING ` + loginTokenColumns

	token, err := scanLoginToken(r.pool.QueryRow(ctx, query, value, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to mark login token exchanged: %w", err)
	}
	return token, true, nil
}

// SetUserID links a token to the account it signed in
func (r *LoginTokenRepository) SetUserID(ctx context.Context, id, userID string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("login_tokens.set_user_id", start, err) }()

	tag, err := r.pool.Exec(ctx,
		`UPDATE login_tokens SET user_id = $2, updated_at = NOW() WHERE id = $1`,
		id, userID)
	if err != nil {
		return fmt.Errorf("failed to link login token to user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "login token")
	}
	return nil
}

// DeleteStale removes tokens that expired or were used before cutoff
func (r *LoginTokenRepository) DeleteStale(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("login_tokens.delete_stale", start, err) }()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM login_tokens WHERE expires_at < $1 OR used_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale login tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
