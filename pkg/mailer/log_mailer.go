package mailer

import (
	"context"

	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"go.uber.org/zap"
)

// LogMailer writes the link to the application log instead of sending it.
// Used in development and tests.
type LogMailer struct{}

// NewLogMailer creates a mailer that only logs
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Provider() string { return ProviderLog }

func (m *LogMailer) SendMagicLink(ctx context.Context, msg MagicLinkMessage) error {
	logger.Info("Magic link email (log provider)",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("purpose", msg.Purpose),
		zap.String("link", msg.Link),
		zap.Time("expires_at", msg.ExpiresAt))
	metrics.MailDispatchTotal.WithLabelValues(ProviderLog, "success").Inc()
	return nil
}
