package services_test

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pantrykit/pantry-api/config"
	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/internal/services"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/httpclient"
	"github.com/pantrykit/pantry-api/pkg/jwt"
	"github.com/pantrykit/pantry-api/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var tokenPattern = regexp.MustCompile(`^plt_[0-9a-f]{64}$`)

type magicLinkFixture struct {
	svc    *services.MagicLinkService
	tokens *fakeTokenStore
	users  *fakeUserStore
	mail   *MockMailer
	clock  *time.Time
	sent   []mailer.MagicLinkMessage
	mu     sync.Mutex
}

func newMagicLinkFixture(t *testing.T, users ...*models.User) *magicLinkFixture {
	t.Helper()

	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: "https://pantry.test"},
		Session: config.SessionConfig{LoginTokenTTLMinutes: 15},
	}

	f := &magicLinkFixture{
		tokens: &fakeTokenStore{},
		users:  newFakeUserStore(users...),
		mail:   &MockMailer{},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.clock = &now

	f.mail.On("SendMagicLink", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sent = append(f.sent, args.Get(1).(mailer.MagicLinkMessage))
	}).Return(nil).Maybe()

	sessions := jwt.NewTokenManager(testSecret, "pantry-api", time.Hour)
	f.svc = services.NewMagicLinkService(f.tokens, f.users, f.mail, sessions, cfg, httpclient.NewStandardClient())
	f.svc.SetClock(func() time.Time { return *f.clock })
	return f
}

func (f *magicLinkFixture) advance(d time.Duration) {
	next := f.clock.Add(d)
	f.clock = &next
}

func (f *magicLinkFixture) issue(t *testing.T, email, purpose, requestID string) *models.LoginToken {
	t.Helper()
	_, err := f.svc.RequestLink(context.Background(), services.RequestLinkInput{
		Email:     email,
		Purpose:   purpose,
		RequestID: requestID,
	})
	require.NoError(t, err)
	tok := f.tokens.last()
	require.NotNil(t, tok)
	return tok
}

func existingUser() *models.User {
	verified := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.User{ID: "user-a", Email: "cook@example.com", EmailVerifiedAt: &verified}
}

func TestRequestLink_IssuesTokenAndSendsMail(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())

	resp, err := f.svc.RequestLink(context.Background(), services.RequestLinkInput{
		Email:       "  Cook@Example.com ",
		RequestID:   "req-1",
		CallbackURL: "/recipes?tab=saved",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "req-1", resp.RequestID)

	tok := f.tokens.last()
	require.NotNil(t, tok)
	assert.Regexp(t, tokenPattern, tok.Token)
	assert.Equal(t, "cook@example.com", tok.Email)
	assert.Equal(t, models.PurposeLogin, tok.Purpose)
	assert.Equal(t, f.clock.Add(15*time.Minute), tok.ExpiresAt)
	require.NotNil(t, tok.UserID)
	assert.Equal(t, "user-a", *tok.UserID)

	require.Len(t, f.sent, 1)
	link, err := url.Parse(f.sent[0].Link)
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/magic-link/verify", link.Path)
	assert.Equal(t, tok.Token, link.Query().Get("token"))
	assert.Equal(t, "/recipes?tab=saved", link.Query().Get("callbackUrl"))
}

func TestRequestLink_GeneratesRequestID(t *testing.T) {
	f := newMagicLinkFixture(t)

	resp, err := f.svc.RequestLink(context.Background(), services.RequestLinkInput{Email: "new@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RequestID)
	assert.Nil(t, f.tokens.last().UserID)
}

func TestRequestLink_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   services.RequestLinkInput
	}{
		{"bad email", services.RequestLinkInput{Email: "not-an-email"}},
		{"bad purpose", services.RequestLinkInput{Email: "a@b.com", Purpose: "reset"}},
		{"absolute callback", services.RequestLinkInput{Email: "a@b.com", CallbackURL: "https://evil.example/"}},
		{"protocol relative callback", services.RequestLinkInput{Email: "a@b.com", CallbackURL: "//evil.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMagicLinkFixture(t)
			_, err := f.svc.RequestLink(context.Background(), tt.in)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Nil(t, f.tokens.last())
		})
	}
}

func TestRequestLink_StorageFailure(t *testing.T) {
	f := newMagicLinkFixture(t)
	f.tokens.failCreate = errors.New("connection refused")

	_, err := f.svc.RequestLink(context.Background(), services.RequestLinkInput{Email: "a@b.com"})
	assert.ErrorIs(t, err, apperrors.ErrDependency)
	assert.Empty(t, f.sent)
}

func TestRequestLink_MailFailure(t *testing.T) {
	f := newMagicLinkFixture(t)
	f.mail.ExpectedCalls = nil
	f.mail.On("SendMagicLink", mock.Anything, mock.Anything).Return(errors.New("ses throttled"))

	_, err := f.svc.RequestLink(context.Background(), services.RequestLinkInput{Email: "a@b.com"})
	assert.ErrorIs(t, err, apperrors.ErrDependency)
}

func TestRequestLink_CaptchaRejected(t *testing.T) {
	f := newMagicLinkFixture(t)
	captcha := &MockCaptcha{}
	captcha.On("Verify", mock.Anything, "bad", "10.0.0.1").Return(errors.New("low score"))
	f.svc.SetCaptchaVerifier(captcha)

	_, err := f.svc.RequestLink(context.Background(), services.RequestLinkInput{
		Email:          "a@b.com",
		RecaptchaToken: "bad",
		RemoteIP:       "10.0.0.1",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Nil(t, f.tokens.last())
	captcha.AssertExpectations(t)
}

func TestPoll_Lifecycle(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	tok := f.issue(t, "cook@example.com", "", "req-poll")
	ctx := context.Background()

	resp, err := f.svc.Poll(ctx, "req-poll")
	require.NoError(t, err)
	assert.True(t, resp.Pending)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Token)

	_, err = f.svc.Consume(ctx, tok.Token)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err = f.svc.Poll(ctx, "req-poll")
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.False(t, resp.Pending)
		assert.Equal(t, tok.Token, resp.Token)
	}
}

func TestPoll_UnknownRequest(t *testing.T) {
	f := newMagicLinkFixture(t)

	_, err := f.svc.Poll(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.Poll(context.Background(), " ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPoll_ExpiredWinsOverUsed(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	tok := f.issue(t, "cook@example.com", "", "req-exp")

	_, err := f.svc.Consume(context.Background(), tok.Token)
	require.NoError(t, err)

	f.advance(15 * time.Minute)
	_, err = f.svc.Poll(context.Background(), "req-exp")
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestPoll_ExpiresAtBoundary(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	f.issue(t, "cook@example.com", "", "req-edge")

	f.advance(15*time.Minute - time.Nanosecond)
	resp, err := f.svc.Poll(context.Background(), "req-edge")
	require.NoError(t, err)
	assert.True(t, resp.Pending)

	f.advance(time.Nanosecond)
	_, err = f.svc.Poll(context.Background(), "req-edge")
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestPoll_NewestTokenWins(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	first := f.issue(t, "cook@example.com", "", "req-dup")
	f.issue(t, "cook@example.com", "", "req-dup")

	_, err := f.svc.Consume(context.Background(), first.Token)
	require.NoError(t, err)

	resp, err := f.svc.Poll(context.Background(), "req-dup")
	require.NoError(t, err)
	assert.True(t, resp.Pending)
}

func TestConsume_IssuesSession(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	tok := f.issue(t, "cook@example.com", "", "req-c")

	result, err := f.svc.Consume(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-a", result.User.ID)
	assert.NotEmpty(t, result.Token)

	session := result.Session()
	assert.Equal(t, "user-a", session.UserID)
	assert.Equal(t, "cook@example.com", session.Email)
	assert.Greater(t, session.ExpiresAt, session.IssuedAt)
}

func TestConsume_SecondAttemptAlreadyUsed(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	tok := f.issue(t, "cook@example.com", "", "req-twice")

	_, err := f.svc.Consume(context.Background(), tok.Token)
	require.NoError(t, err)

	_, err = f.svc.Consume(context.Background(), tok.Token)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)
}

func TestConsume_Concurrent(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	tok := f.issue(t, "cook@example.com", "", "req-race")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Consume(context.Background(), tok.Token); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestConsume_Errors(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	tok := f.issue(t, "cook@example.com", "", "req-err")

	_, err := f.svc.Consume(context.Background(), "plt_unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.Consume(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	f.advance(time.Hour)
	_, err = f.svc.Consume(context.Background(), tok.Token)
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestConsume_LoginWithoutAccount(t *testing.T) {
	f := newMagicLinkFixture(t)
	tok := f.issue(t, "stranger@example.com", "login", "req-none")

	_, err := f.svc.Consume(context.Background(), tok.Token)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.users.GetByEmail(context.Background(), "stranger@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConsume_EmailVerificationCreatesAccount(t *testing.T) {
	f := newMagicLinkFixture(t)
	tok := f.issue(t, "fresh@example.com", "email-verification", "req-new")

	result, err := f.svc.Consume(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", result.User.Email)
	require.NotNil(t, result.User.EmailVerifiedAt)

	stored, err := f.tokens.GetByToken(context.Background(), tok.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, result.User.ID, *stored.UserID)
}

func TestConsume_EmailVerificationMarksExistingAccount(t *testing.T) {
	unverified := &models.User{ID: "user-u", Email: "later@example.com"}
	f := newMagicLinkFixture(t, unverified)
	tok := f.issue(t, "later@example.com", "email-verification", "req-verify")

	result, err := f.svc.Consume(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-u", result.User.ID)
	assert.NotNil(t, result.User.EmailVerifiedAt)
}

func TestExchange_Flow(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	tok := f.issue(t, "cook@example.com", "", "req-x")
	ctx := context.Background()

	_, err := f.svc.Exchange(ctx, tok.Token)
	assert.ErrorIs(t, err, apperrors.ErrNotConsumed)

	_, err = f.svc.Consume(ctx, tok.Token)
	require.NoError(t, err)

	result, err := f.svc.Exchange(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-a", result.User.ID)

	_, err = f.svc.Exchange(ctx, tok.Token)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)

	_, err = f.svc.Exchange(ctx, "plt_nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExchange_Expired(t *testing.T) {
	f := newMagicLinkFixture(t, existingUser())
	tok := f.issue(t, "cook@example.com", "", "req-xe")

	_, err := f.svc.Consume(context.Background(), tok.Token)
	require.NoError(t, err)

	f.advance(16 * time.Minute)
	_, err = f.svc.Exchange(context.Background(), tok.Token)
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestSanitizeCallbackURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", services.DefaultCallbackPath, true},
		{"/recipes", "/recipes", true},
		{"/plan?week=2026-03-02", "/plan?week=2026-03-02", true},
		{"recipes", "", false},
		{"//evil.example", "", false},
		{"/\\evil.example", "", false},
		{"https://evil.example/x", "", false},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.in, "/", "_"), func(t *testing.T) {
			got, ok := services.SanitizeCallbackURL(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
