package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"github.com/pantrykit/pantry-api/pkg/retry"
	"go.uber.org/zap"
)

// MaxImageSize is the largest receipt photo accepted (10MB)
const MaxImageSize = 10 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// objectAPI is the subset of the S3 client the receipt store needs
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config describes an S3-compatible bucket
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
	// PublicBaseURL overrides the URL prefix returned for stored objects
	PublicBaseURL string
}

// ReceiptStore keeps receipt photos in S3-compatible object storage
type ReceiptStore struct {
	client        objectAPI
	bucketName    string
	publicBaseURL string
	retryConfig   retry.Config
}

// NewReceiptStore creates a store backed by the S3 SDK
func NewReceiptStore(cfg Config) (*ReceiptStore, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("receipt storage bucket is not configured")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		if cfg.Endpoint != "" {
			publicBase = fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.BucketName)
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region)
		}
	}

	logger.Info("Receipt storage initialized",
		zap.String("bucket", cfg.BucketName),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("region", cfg.Region))

	return newReceiptStore(s3.New(opts), cfg.BucketName, publicBase), nil
}

func newReceiptStore(client objectAPI, bucket, publicBase string) *ReceiptStore {
	return &ReceiptStore{
		client:        client,
		bucketName:    bucket,
		publicBaseURL: strings.TrimRight(publicBase, "/"),
		retryConfig:   retry.StorageConfig(),
	}
}

// Upload stores data under key and returns its public URL
func (s *ReceiptStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	start := time.Now()
	operation := "putObject"

	err := retry.Do(ctx, s.retryConfig, "storage.PutObject", func() error {
		_, putErr := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		return putErr
	})

	duration := metrics.MeasureDuration(start)
	if err != nil {
		metrics.StorageRequestDuration.WithLabelValues(operation, "error").Observe(duration)
		metrics.StorageRequestTotal.WithLabelValues(operation, "error").Inc()
		logger.LogAPICall(ctx, "receipt_storage", operation, "error", duration,
			zap.Error(err),
			zap.String("key", key))
		return "", fmt.Errorf("failed to upload receipt image: %w", err)
	}

	metrics.StorageRequestDuration.WithLabelValues(operation, "success").Observe(duration)
	metrics.StorageRequestTotal.WithLabelValues(operation, "success").Inc()
	logger.LogAPICall(ctx, "receipt_storage", operation, "success", duration,
		zap.String("key", key),
		zap.Int("size_bytes", len(data)))

	return fmt.Sprintf("%s/%s", s.publicBaseURL, key), nil
}

// Delete removes an object. Used to roll back an upload whose scan failed.
func (s *ReceiptStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	operation := "deleteObject"

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	duration := metrics.MeasureDuration(start)
	metrics.StorageRequestDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.StorageRequestTotal.WithLabelValues(operation, status).Inc()

	if err != nil {
		logger.LogAPICall(ctx, "receipt_storage", operation, status, duration, zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to delete receipt image: %w", err)
	}
	return nil
}

// DecodeImage accepts raw base64 or a data URI (data:image/png;base64,...).
// The content type embedded in a data URI is returned when present.
func DecodeImage(imageData string) ([]byte, string, error) {
	payload := imageData
	contentType := ""

	if strings.HasPrefix(imageData, "data:") {
		parts := strings.SplitN(imageData, ",", 2)
		if len(parts) != 2 {
			return nil, "", fmt.Errorf("invalid data URI format")
		}
		meta := strings.TrimPrefix(parts[0], "data:")
		contentType = strings.TrimSuffix(meta, ";base64")
		payload = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return data, contentType, nil
}

// ValidateImageType validates the image content type
func ValidateImageType(contentType string) error {
	if !allowedImageTypes[strings.ToLower(contentType)] {
		return fmt.Errorf("invalid file type: %s. Allowed types: jpeg, jpg, png, webp", contentType)
	}
	return nil
}

// ValidateImageSize rejects empty images and anything above MaxImageSize
func ValidateImageSize(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("image is empty")
	}
	if len(data) > MaxImageSize {
		return fmt.Errorf("file too large: %d bytes (max %d bytes)", len(data), MaxImageSize)
	}
	return nil
}
