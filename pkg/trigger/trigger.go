package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pantrykit/pantry-api/pkg/httpclient"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"go.uber.org/zap"
)

// Account lifecycle events delivered to USER_EVENTS_WEBHOOK_URL
const (
	EventAccountCreated = "account.created"
	EventAccountDeleted = "account.deleted"
)

// Event is the JSON body posted to the hook
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// deliveryTimeout bounds a single hook call; the request context is already gone by then
const deliveryTimeout = 10 * time.Second

// NotifyAsync posts an account event to hookURL in the background.
// Failures are logged but never block or fail the operation that raised the event.
func NotifyAsync(hookURL string, event Event, httpClient httpclient.Client) {
	if hookURL == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		deliver(ctx, hookURL, event, httpClient)
	}()
}

func deliver(ctx context.Context, hookURL string, event Event, httpClient httpclient.Client) {
	body, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to encode account event", zap.Error(err), zap.String("type", event.Type))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hookURL, bytes.NewReader(body))
	if err != nil {
		logger.Error("Failed to build account event request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Error("Failed to deliver account event",
			zap.Error(err),
			zap.String("type", event.Type),
			zap.String("user_id", event.UserID))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Info("Account event delivered",
			zap.String("type", event.Type),
			zap.String("user_id", event.UserID),
			zap.Int("status_code", resp.StatusCode))
	} else {
		logger.Warn("Account event hook returned non-success status",
			zap.String("type", event.Type),
			zap.String("user_id", event.UserID),
			zap.Int("status_code", resp.StatusCode))
	}
}
