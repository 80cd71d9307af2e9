package services

import (
	"context"
	"strings"
	"time"

	"github.com/pantrykit/pantry-api/internal/models"
	"github.com/pantrykit/pantry-api/pkg/httpclient"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/trigger"
	"go.uber.org/zap"
)

// AccountInvalidator forgets cached account state
type AccountInvalidator interface {
	MarkDeleted(userID string)
}

// UserService handles the signed-in user's account
type UserService struct {
	users      UserStore
	accounts   AccountInvalidator
	hookURL    string
	httpClient httpclient.Client
}

// NewUserService creates a new UserService
func NewUserService(users UserStore, accounts AccountInvalidator, hookURL string, httpClient httpclient.Client) *UserService {
	return &UserService{
		users:      users,
		accounts:   accounts,
		hookURL:    hookURL,
		httpClient: httpClient,
	}
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) UpdateName(ctx context.Context, userID, name string) (*models.User, error) {
	return s.users.UpdateName(ctx, userID, strings.TrimSpace(name))
}

// Delete removes the account. Sessions issued for it stop working on their next request.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	if s.accounts != nil {
		s.accounts.MarkDeleted(userID)
	}

	logger.Info("Account deleted", zap.String("user_id", userID))

	trigger.NotifyAsync(s.hookURL, trigger.Event{
		Type:       trigger.EventAccountDeleted,
		UserID:     userID,
		OccurredAt: time.Now(),
	}, s.httpClient)

	return nil
}
