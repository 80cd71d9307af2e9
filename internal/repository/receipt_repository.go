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

const receiptColumns = `id, user_id, image_url, raw_text, lines, created_at`

// ReceiptRepository stores receipt scans
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

func scanReceipt(row pgx.Row) (*models.ReceiptScan, error) {
	var s models.ReceiptScan
	if err := row.Scan(&s.ID, &s.UserID, &s.ImageURL, &s.RawText, &s.Lines, &s.CreatedAt); err != nil {
		return nil, err
	}
	if s.Lines == nil {
		s.Lines = []models.ReceiptLine{}
	}
	return &s, nil
}

// Create persists a scan
func (r *ReceiptRepository) Create(ctx context.Context, scan *models.ReceiptScan) (_ *models.ReceiptScan, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("receipt_scans.create", start, err) }()

	lines := scan.Lines
	if lines == nil {
		lines = []models.ReceiptLine{}
	}

	created, err := scanReceipt(r.pool.QueryRow(ctx, `
		INSERT INTO receipt_scans (user_id, image_url, raw_text, lines)
		VALUES ($1, $2, $3, $4)
		RETURNING `+receiptColumns,
		scan.UserID, scan.ImageURL, scan.RawText, lines))
	if err != nil {
		return nil, fmt.Errorf("failed to save receipt scan: %w", err)
	}
	return created, nil
}

// ListByUser returns the most recent scans
func (r *ReceiptRepository) ListByUser(ctx context.Context, userID string, limit int) (_ []*models.ReceiptScan, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBOperation("receipt_scans.list", start, err) }()

	rows, err := r.pool.Query(ctx, `
		SELECT `+receiptColumns+`
		FROM receipt_scans
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipt scans: %w", err)
	}
	defer rows.Close()

	scans := make([]*models.ReceiptScan, 0)
	for rows.Next() {
		scan, scanErr := scanReceipt(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", scanErr)
		}
		scans = append(scans, scan)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt scans: %w", err)
	}
	return scans, nil
}
