package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by MAIL_PROVIDER
const (
	ProviderLog     = "log"
	ProviderSES     = "ses"
	ProviderWebhook = "webhook"
)

// MagicLinkMessage is everything a provider needs to render a sign-in email
type MagicLinkMessage struct {
	To        string
	Link      string
	Purpose   string
	ExpiresAt time.Time
}

// Mailer sends transactional email. Implementations must not retry on their own;
// a failed send surfaces to the caller as-is.
type Mailer interface {
	SendMagicLink(ctx context.Context, msg MagicLinkMessage) error
	Provider() string
}

// Subject returns the subject line for the message purpose
func (m MagicLinkMessage) Subject() string {
	if m.Purpose == "email-verification" {
		return "Confirm your email for Pantry"
	}
	return "Your Pantry sign-in link"
}

// TextBody renders the plain text version of the email
func (m MagicLinkMessage) TextBody() string {
	var b strings.Builder
	if m.Purpose == "email-verification" {
		b.WriteString("Confirm your email address to finish setting up your Pantry account:\n\n")
	} else {
		b.WriteString("Use the link below to sign in to Pantry:\n\n")
	}
	b.WriteString(m.Link)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "The link expires in %d minutes and can only be used once.\n", m.minutesLeft())
	b.WriteString("If you didn't ask for this email, you can ignore it.\n")
	return b.String()
}

// HTMLBody renders the HTML version of the email
func (m MagicLinkMessage) HTMLBody() string {
	action := "Sign in"
	if m.Purpose == "email-verification" {
		action = "Confirm email"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <p><a href="%s" style="display:inline-block;background:#2f7d4a;color:#fff;padding:12px 24px;border-radius:4px;text-decoration:none;">%s</a></p>
  <p>Or paste this link in your browser:<br><code>%s</code></p>
  <p style="color:#666;font-size:12px;">The link expires in %d minutes and can only be used once.</p>
</body>
</html>
`, m.Link, action, m.Link, m.minutesLeft())
}

func (m MagicLinkMessage) minutesLeft() int {
	left := int(time.Until(m.ExpiresAt).Round(time.Minute) / time.Minute)
	if left < 1 {
		return 1
	}
	return left
}
