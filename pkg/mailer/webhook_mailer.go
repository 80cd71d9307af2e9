package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pantrykit/pantry-api/pkg/httpclient"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"go.uber.org/zap"
)

// webhookPayload is posted to MAIL_WEBHOOK_URL
type webhookPayload struct {
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	HTML      string    `json:"html"`
	Link      string    `json:"link"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// WebhookMailer hands the rendered email to an external delivery service
type WebhookMailer struct {
	url        string
	httpClient httpclient.Client
}

// NewWebhookMailer creates a webhook-backed mailer
func NewWebhookMailer(url string, httpClient httpclient.Client) *WebhookMailer {
	return &WebhookMailer{url: url, httpClient: httpClient}
}

func (m *WebhookMailer) Provider() string { return ProviderWebhook }

func (m *WebhookMailer) SendMagicLink(ctx context.Context, msg MagicLinkMessage) error {
	start := time.Now()

	body, err := json.Marshal(webhookPayload{
		To:        msg.To,
		Subject:   msg.Subject(),
		Text:      msg.TextBody(),
		HTML:      msg.HTMLBody(),
		Link:      msg.Link,
		Purpose:   msg.Purpose,
		ExpiresAt: msg.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode mail webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mail webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		metrics.MailDispatchTotal.WithLabelValues(ProviderWebhook, "error").Inc()
		logger.LogAPICall(ctx, "mail_webhook", "send", "error", metrics.MeasureDuration(start), zap.Error(err))
		return fmt.Errorf("failed to call mail webhook: %w", err)
	}
	defer resp.Body.Close()

	duration := metrics.MeasureDuration(start)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.MailDispatchTotal.WithLabelValues(ProviderWebhook, "error").Inc()
		logger.LogAPICall(ctx, "mail_webhook", "send", "error", duration,
			zap.Int("status_code", resp.StatusCode))
		return fmt.Errorf("mail webhook returned status %d", resp.StatusCode)
	}

	metrics.MailDispatchTotal.WithLabelValues(ProviderWebhook, "success").Inc()
	logger.LogAPICall(ctx, "mail_webhook", "send", "success", duration,
		zap.String("to", logger.MaskEmail(msg.To)))
	return nil
}
