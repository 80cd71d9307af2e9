package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pantrykit/pantry-api/pkg/circuitbreaker"
	"github.com/pantrykit/pantry-api/pkg/httpclient"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"github.com/pantrykit/pantry-api/pkg/retry"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrUnreadable is returned when the provider accepted the image but found no text
var ErrUnreadable = errors.New("receipt text could not be read")

type extractRequest struct {
	Image       []byte `json:"image"`
	ContentType string `json:"contentType"`
}

type extractResponse struct {
	Text string `json:"text"`
}

// Client extracts text from receipt photos through an HTTP OCR provider
type Client struct {
	url         string
	apiKey      string
	httpClient  httpclient.Client
	breaker     *gobreaker.CircuitBreaker
	retryConfig retry.Config
}

// NewClient creates an OCR client. Calls are retried on transient failures and
// guarded by a circuit breaker so a dead provider fails fast.
func NewClient(url, apiKey string, httpClient httpclient.Client) *Client {
	cbConfig := circuitbreaker.DefaultConfig("ocr")
	cbConfig.IsSuccessful = func(err error) bool {
		var permanent *retry.PermanentError
		return err == nil || errors.As(err, &permanent)
	}

	return &Client{
		url:         url,
		apiKey:      apiKey,
		httpClient:  httpClient,
		breaker:     circuitbreaker.NewCircuitBreaker(cbConfig),
		retryConfig: retry.OCRConfig(),
	}
}

// ExtractText returns the raw text printed on the receipt
func (c *Client) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	start := time.Now()

	text, err := circuitbreaker.Execute(c.breaker, func() (string, error) {
		return retry.DoWithResult(ctx, c.retryConfig, "ocr.ExtractText", func() (string, error) {
			return c.extract(ctx, image, contentType)
		})
	})

	duration := metrics.MeasureDuration(start)
	if err != nil {
		metrics.OCRRequestDuration.WithLabelValues("error").Observe(duration)
		logger.LogAPICall(ctx, "ocr", "extractText", "error", duration, zap.Error(err))
		return "", err
	}

	metrics.OCRRequestDuration.WithLabelValues("success").Observe(duration)
	logger.LogAPICall(ctx, "ocr", "extractText", "success", duration,
		zap.Int("text_length", len(text)))
	return text, nil
}

func (c *Client) extract(ctx context.Context, image []byte, contentType string) (string, error) {
	body, err := json.Marshal(extractRequest{Image: image, ContentType: contentType})
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to encode OCR request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to build OCR request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("OCR provider returned %s: %s", strconv.Itoa(resp.StatusCode), string(snippet))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", retry.Permanent(statusErr)
		}
		return "", statusErr
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}
	if out.Text == "" {
		return "", retry.Permanent(ErrUnreadable)
	}
	return out.Text, nil
}
