package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"go.uber.org/zap"
)

// sesAPI is the subset of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends email through AWS SES
type SESMailer struct {
	client      sesAPI
	fromAddress string
}

// NewSESMailer loads the default AWS credential chain for region
func NewSESMailer(ctx context.Context, region, fromAddress string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("SES mailer initialized",
		zap.String("region", region),
		zap.String("from", fromAddress))

	return &SESMailer{
		client:      ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
	}, nil
}

func (m *SESMailer) Provider() string { return ProviderSES }

func (m *SESMailer) SendMagicLink(ctx context.Context, msg MagicLinkMessage) error {
	start := time.Now()

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject())},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTMLBody())},
				Text: &types.Content{Data: aws.String(msg.TextBody())},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	duration := metrics.MeasureDuration(start)
	if err != nil {
		metrics.MailDispatchTotal.WithLabelValues(ProviderSES, "error").Inc()
		logger.LogAPICall(ctx, "ses", "SendEmail", "error", duration,
			zap.String("to", logger.MaskEmail(msg.To)),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.MailDispatchTotal.WithLabelValues(ProviderSES, "success").Inc()
	logger.LogAPICall(ctx, "ses", "SendEmail", "success", duration,
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
