package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pantrykit/pantry-api/config"
	"github.com/pantrykit/pantry-api/internal/models"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/httpclient"
	"github.com/pantrykit/pantry-api/pkg/jwt"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/mailer"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"github.com/pantrykit/pantry-api/pkg/tracing"
	"github.com/pantrykit/pantry-api/pkg/trigger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	loginTokenPrefix = "plt_"
	loginTokenBytes  = 32
	// DefaultCallbackPath is where a verified user lands when no callback was given
	DefaultCallbackPath = "/dashboard"
)

// RequestLinkInput carries a magic link request after transport decoding
type RequestLinkInput struct {
	Email          string
	Purpose        string
	RequestID      string
	CallbackURL    string
	RecaptchaToken string
	RemoteIP       string
}

// SessionResult is a freshly issued session
type SessionResult struct {
	User        *models.User
	Token       string
	Claims      *jwt.SessionClaims
	CallbackURL string
}

// Session returns the public view of the result
func (r *SessionResult) Session() *models.Session {
	s := &models.Session{UserID: r.User.ID, Email: r.User.Email}
	if r.Claims != nil {
		if r.Claims.ExpiresAt != nil {
			s.ExpiresAt = r.Claims.ExpiresAt.Unix()
		}
		if r.Claims.IssuedAt != nil {
			s.IssuedAt = r.Claims.IssuedAt.Unix()
		}
	}
	return s
}

// MagicLinkService issues, tracks and redeems passwordless sign-in links
type MagicLinkService struct {
	tokens     LoginTokenStore
	users      UserStore
	mail       mailer.Mailer
	sessions   SessionIssuer
	captcha    CaptchaVerifier
	httpClient httpclient.Client
	validate   *validator.Validate
	config     *config.Config
	now        func() time.Time
}

// NewMagicLinkService creates a new MagicLinkService
func NewMagicLinkService(
	tokens LoginTokenStore,
	users UserStore,
	mail mailer.Mailer,
	sessions SessionIssuer,
	cfg *config.Config,
	httpClient httpclient.Client,
) *MagicLinkService {
	return &MagicLinkService{
		tokens:     tokens,
		users:      users,
		mail:       mail,
		sessions:   sessions,
		httpClient: httpClient,
		validate:   validator.New(),
		config:     cfg,
		now:        time.Now,
	}
}

// SetCaptchaVerifier requires a captcha on every link request
func (s *MagicLinkService) SetCaptchaVerifier(v CaptchaVerifier) {
	s.captcha = v
}

// SetClock replaces the time source
func (s *MagicLinkService) SetClock(now func() time.Time) {
	s.now = now
}

// RequestLink issues a login token and emails the link to the user
func (s *MagicLinkService) RequestLink(ctx context.Context, in RequestLinkInput) (*models.RequestLinkResponse, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "MagicLinkService.RequestLink")
	defer span.End()

	resp, status, err := s.requestLink(ctx, in)
	metrics.MagicLinkRequests.WithLabelValues(status).Inc()
	metrics.MagicLinkRequestDuration.Observe(metrics.MeasureDuration(start))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return resp, nil
}

func (s *MagicLinkService) requestLink(ctx context.Context, in RequestLinkInput) (*models.RequestLinkResponse, string, error) {
	email := normalizeEmail(in.Email)
	if err := s.validate.Var(email, "required,email,max=255"); err != nil {
		return nil, "invalid_email", apperrors.ValidationError("email", "must be a valid email address")
	}

	purpose := models.TokenPurpose(in.Purpose)
	if purpose == "" {
		purpose = models.PurposeLogin
	}
	if !purpose.Valid() {
		return nil, "invalid_purpose", apperrors.ValidationError("purpose", "must be login or email-verification")
	}

	requestID := strings.TrimSpace(in.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	} else if err := s.validate.Var(requestID, "max=128,printascii"); err != nil {
		return nil, "invalid_request_id", apperrors.ValidationError("requestId", "must be at most 128 printable characters")
	}

	callback, ok := SanitizeCallbackURL(in.CallbackURL)
	if !ok {
		return nil, "invalid_callback", apperrors.ValidationError("callbackUrl", "must be a relative path")
	}

	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, in.RecaptchaToken, in.RemoteIP); err != nil {
			logger.Warn("Magic link captcha rejected",
				zap.String("email", logger.MaskEmail(email)),
				zap.Error(err))
			return nil, "captcha_failed", apperrors.ValidationError("recaptchaToken", "verification failed")
		}
	}

	value, err := generateLoginToken()
	if err != nil {
		logger.Error("Failed to generate login token", zap.Error(err))
		return nil, "token_generation_failed", apperrors.DependencyError("generate login token", err)
	}

	now := s.now()
	token := &models.LoginToken{
		Token:     value,
		Email:     email,
		RequestID: requestID,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.config.LoginTokenTTL()),
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		token.UserID = &user.ID
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		logger.Error("Failed to look up account for magic link", zap.Error(err))
		return nil, "storage_failed", apperrors.DependencyError("look up account", err)
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		logger.Error("Failed to store login token",
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, "storage_failed", apperrors.DependencyError("store login token", err)
	}

	msg := mailer.MagicLinkMessage{
		To:        email,
		Link:      s.buildVerifyLink(value, callback),
		Purpose:   string(purpose),
		ExpiresAt: token.ExpiresAt,
	}
	if err := s.mail.SendMagicLink(ctx, msg); err != nil {
		logger.Error("Failed to send magic link",
			zap.String("provider", s.mail.Provider()),
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err))
		return nil, "mail_failed", apperrors.DependencyError("send magic link", err)
	}

	logger.Info("Magic link issued",
		zap.String("request_id", requestID),
		zap.String("purpose", string(purpose)),
		zap.String("email", logger.MaskEmail(email)),
		zap.Bool("known_account", token.UserID != nil))

	return &models.RequestLinkResponse{Success: true, RequestID: requestID}, "success", nil
}

// Poll reports the state of the newest token issued for requestID.
// Expiry wins over consumption: an expired token never reports success.
func (s *MagicLinkService) Poll(ctx context.Context, requestID string) (*models.PollResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "MagicLinkService.Poll")
	defer span.End()

	if strings.TrimSpace(requestID) == "" {
		metrics.MagicLinkPolls.WithLabelValues("invalid").Inc()
		return nil, apperrors.ValidationError("requestId", "is required")
	}

	token, err := s.tokens.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.MagicLinkPolls.WithLabelValues("not_found").Inc()
			return nil, err
		}
		metrics.MagicLinkPolls.WithLabelValues("error").Inc()
		return nil, apperrors.DependencyError("load login token", err)
	}

	if token.IsExpired(s.now()) {
		metrics.MagicLinkPolls.WithLabelValues("expired").Inc()
		return nil, fmt.Errorf("login link %w", apperrors.ErrExpired)
	}

	if token.UsedAt != nil {
		metrics.MagicLinkPolls.WithLabelValues("success").Inc()
		return &models.PollResponse{Success: true, Token: token.Token}, nil
	}

	metrics.MagicLinkPolls.WithLabelValues("pending").Inc()
	return &models.PollResponse{Pending: true}, nil
}

// Consume redeems a token from the emailed link and starts a session
func (s *MagicLinkService) Consume(ctx context.Context, value string) (*SessionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "MagicLinkService.Consume")
	defer span.End()

	result, outcome, err := s.consume(ctx, value)
	metrics.MagicLinkConsumptions.WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", result.User.ID))
	return result, nil
}

func (s *MagicLinkService) consume(ctx context.Context, value string) (*SessionResult, string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, "invalid", apperrors.ValidationError("token", "is required")
	}

	now := s.now()
	token, ok, err := s.tokens.MarkUsed(ctx, value, now)
	if err != nil {
		logger.Error("Failed to consume login token", zap.Error(err))
		return nil, "error", apperrors.DependencyError("consume login token", err)
	}

	if !ok {
		// Nothing changed: tell the caller why
		existing, getErr := s.tokens.GetByToken(ctx, value)
		switch {
		case errors.Is(getErr, apperrors.ErrNotFound):
			return nil, "not_found", getErr
		case getErr != nil:
			return nil, "error", apperrors.DependencyError("load login token", getErr)
		case existing.IsExpired(now):
			return nil, "expired", fmt.Errorf("login link %w", apperrors.ErrExpired)
		case existing.UsedAt != nil:
			logger.Warn("Login token reused",
				zap.String("request_id", existing.RequestID),
				zap.Time("used_at", *existing.UsedAt))
			return nil, "already_used", fmt.Errorf("login link %w", apperrors.ErrAlreadyUsed)
		default:
			// Raced with the deadline between the update and the read
			return nil, "expired", fmt.Errorf("login link %w", apperrors.ErrExpired)
		}
	}

	user, err := s.resolveAccount(ctx, token, now)
	if err != nil {
		outcome := "error"
		if errors.Is(err, apperrors.ErrNotFound) {
			outcome = "no_account"
		}
		return nil, outcome, err
	}

	if token.UserID == nil || *token.UserID != user.ID {
		if linkErr := s.tokens.SetUserID(ctx, token.ID, user.ID); linkErr != nil {
			// The token is already spent; a missing link only affects the audit trail
			logger.Error("Failed to link login token to account",
				zap.String("token_id", token.ID),
				zap.String("user_id", user.ID),
				zap.Error(linkErr))
		}
	}

	result, err := s.issueSession(user)
	if err != nil {
		return nil, "error", err
	}

	logger.Info("Magic link consumed",
		zap.String("request_id", token.RequestID),
		zap.String("user_id", user.ID),
		zap.String("purpose", string(token.Purpose)))

	return result, "success", nil
}

// resolveAccount finds the account a consumed token signs in, creating it for
// email verification links
func (s *MagicLinkService) resolveAccount(ctx context.Context, token *models.LoginToken, now time.Time) (*models.User, error) {
	var user *models.User

	if token.UserID != nil {
		u, err := s.users.GetByID(ctx, *token.UserID)
		switch {
		case err == nil:
			user = u
		case errors.Is(err, apperrors.ErrNotFound):
		default:
			return nil, apperrors.DependencyError("load account", err)
		}
	}

	if user == nil {
		u, err := s.users.GetByEmail(ctx, token.Email)
		switch {
		case err == nil:
			user = u
		case errors.Is(err, apperrors.ErrNotFound):
		default:
			return nil, apperrors.DependencyError("load account", err)
		}
	}

	if token.Purpose != models.PurposeEmailVerification {
		if user == nil {
			return nil, apperrors.NotFoundError("account")
		}
		return user, nil
	}

	if user == nil {
		created, err := s.users.Create(ctx, token.Email, &now)
		if err != nil {
			return nil, apperrors.DependencyError("create account", err)
		}
		trigger.NotifyAsync(s.config.Hooks.UserEventsURL, trigger.Event{
			Type:       trigger.EventAccountCreated,
			UserID:     created.ID,
			OccurredAt: now,
		}, s.httpClient)
		return created, nil
	}

	if user.EmailVerifiedAt == nil {
		verified, err := s.users.MarkEmailVerified(ctx, user.ID, now)
		if err != nil {
			return nil, apperrors.DependencyError("verify email", err)
		}
		return verified, nil
	}

	return user, nil
}

// Exchange trades a consumed token for a session on the device that polled for it.
// Each token can be exchanged once.
func (s *MagicLinkService) Exchange(ctx context.Context, value string) (*SessionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "MagicLinkService.Exchange")
	defer span.End()

	result, outcome, err := s.exchange(ctx, value)
	metrics.SessionExchanges.WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func (s *MagicLinkService) exchange(ctx context.Context, value string) (*SessionResult, string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, "invalid", apperrors.ValidationError("token", "is required")
	}

	now := s.now()
	token, ok, err := s.tokens.MarkExchanged(ctx, value, now)
	if err != nil {
		return nil, "error", apperrors.DependencyError("exchange login token", err)
	}

	if !ok {
		existing, getErr := s.tokens.GetByToken(ctx, value)
		switch {
		case errors.Is(getErr, apperrors.ErrNotFound):
			return nil, "not_found", getErr
		case getErr != nil:
			return nil, "error", apperrors.DependencyError("load login token", getErr)
		case existing.IsExpired(now):
			return nil, "expired", fmt.Errorf("login link %w", apperrors.ErrExpired)
		case existing.UsedAt == nil:
			return nil, "not_consumed", fmt.Errorf("login link %w", apperrors.ErrNotConsumed)
		default:
			return nil, "already_exchanged", fmt.Errorf("login link %w", apperrors.ErrAlreadyUsed)
		}
	}

	if token.UserID == nil {
		return nil, "no_account", apperrors.NotFoundError("account")
	}

	user, err := s.users.GetByID(ctx, *token.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "no_account", err
		}
		return nil, "error", apperrors.DependencyError("load account", err)
	}

	result, err := s.issueSession(user)
	if err != nil {
		return nil, "error", err
	}
	return result, "success", nil
}

func (s *MagicLinkService) issueSession(user *models.User) (*SessionResult, error) {
	raw, claims, err := s.sessions.GenerateToken(user.ID, user.Email)
	if err != nil {
		logger.Error("Failed to generate session", zap.String("user_id", user.ID), zap.Error(err))
		return nil, apperrors.DependencyError("issue session", err)
	}
	return &SessionResult{User: user, Token: raw, Claims: claims}, nil
}

func (s *MagicLinkService) buildVerifyLink(token, callback string) string {
	q := url.Values{}
	q.Set("token", token)
	if callback != "" && callback != DefaultCallbackPath {
		q.Set("callbackUrl", callback)
	}
	return fmt.Sprintf("%s/api/auth/magic-link/verify?%s", s.config.Server.BaseURL, q.Encode())
}

// SanitizeCallbackURL accepts only same-origin relative paths. An empty input
// yields the default landing page.
func SanitizeCallbackURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCallbackPath, true
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return u.RequestURI(), true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateLoginToken returns plt_ followed by 64 hex characters
func generateLoginToken() (string, error) {
	b := make([]byte, loginTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return loginTokenPrefix + hex.EncodeToString(b), nil
}
