package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pantrykit/pantry-api/internal/models"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"github.com/pantrykit/pantry-api/pkg/ocr"
	"github.com/pantrykit/pantry-api/pkg/storage"
	"github.com/pantrykit/pantry-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const recentReceiptLimit = 20

// ReceiptService turns receipt photos into pantry items
type ReceiptService struct {
	receipts    ReceiptScanStore
	ingredients IngredientStore
	images      ImageStore
	extractor   TextExtractor
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(receipts ReceiptScanStore, ingredients IngredientStore, images ImageStore, extractor TextExtractor) *ReceiptService {
	return &ReceiptService{
		receipts:    receipts,
		ingredients: ingredients,
		images:      images,
		extractor:   extractor,
	}
}

// Scan uploads the photo, reads its text and stores the parsed lines.
// The uploaded photo is removed again when a later step fails.
func (s *ReceiptService) Scan(ctx context.Context, userID string, req *models.ReceiptScanRequest) (*models.ReceiptScan, error) {
	ctx, span := tracing.StartSpan(ctx, "ReceiptService.Scan", attribute.String("user.id", userID))
	defer span.End()

	scan, status, err := s.scan(ctx, userID, req)
	metrics.ReceiptScans.WithLabelValues(status).Inc()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return scan, nil
}

func (s *ReceiptService) scan(ctx context.Context, userID string, req *models.ReceiptScanRequest) (*models.ReceiptScan, string, error) {
	data, embeddedType, err := storage.DecodeImage(req.Image)
	if err != nil {
		return nil, "invalid", apperrors.ValidationError("image", "must be base64 or a data URI")
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = embeddedType
	}
	if err := storage.ValidateImageType(contentType); err != nil {
		return nil, "invalid", apperrors.ValidationError("contentType", err.Error())
	}
	if err := storage.ValidateImageSize(data); err != nil {
		return nil, "invalid", apperrors.ValidationError("image", err.Error())
	}

	key := fmt.Sprintf("receipts/%s/%s%s", userID, uuid.NewString(), extensionFor(contentType))
	imageURL, err := s.images.Upload(ctx, key, contentType, data)
	if err != nil {
		return nil, "upload_failed", apperrors.DependencyError("upload receipt", err)
	}

	text, err := s.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		s.rollback(ctx, key)
		if errors.Is(err, ocr.ErrUnreadable) {
			return nil, "unreadable", apperrors.ValidationError("image", "no text could be read from the receipt")
		}
		return nil, "ocr_failed", apperrors.DependencyError("read receipt", err)
	}

	parsed := ocr.ParseLines(text)
	lines := make([]models.ReceiptLine, 0, len(parsed))
	for _, l := range parsed {
		lines = append(lines, models.ReceiptLine{Name: l.Name, Quantity: l.Quantity, Price: l.Price})
	}

	scan, err := s.receipts.Create(ctx, &models.ReceiptScan{
		UserID:   userID,
		ImageURL: imageURL,
		RawText:  text,
		Lines:    lines,
	})
	if err != nil {
		s.rollback(ctx, key)
		return nil, "storage_failed", apperrors.DependencyError("store receipt", err)
	}

	if req.AddToPantry && len(lines) > 0 {
		items := make([]*models.Ingredient, 0, len(lines))
		for _, l := range lines {
			items = append(items, &models.Ingredient{
				UserID:   userID,
				Name:     l.Name,
				Quantity: l.Quantity,
				Category: "groceries",
			})
		}
		if err := s.ingredients.CreateMany(ctx, items); err != nil {
			// The scan itself is stored; the user can add items by hand
			logger.Error("Failed to add receipt lines to pantry",
				zap.String("user_id", userID),
				zap.String("receipt_id", scan.ID),
				zap.Error(err))
			return scan, "partial", nil
		}
	}

	logger.Info("Receipt scanned",
		zap.String("user_id", userID),
		zap.String("receipt_id", scan.ID),
		zap.Int("lines", len(lines)))

	return scan, "success", nil
}

func (s *ReceiptService) List(ctx context.Context, userID string) ([]*models.ReceiptScan, error) {
	return s.receipts.ListByUser(ctx, userID, recentReceiptLimit)
}

func (s *ReceiptService) rollback(ctx context.Context, key string) {
	// The request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.images.Delete(ctx, key); err != nil {
		logger.Warn("Failed to remove receipt image", zap.String("key", key), zap.Error(err))
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
