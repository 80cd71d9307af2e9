package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/pantrykit/pantry-api/internal/cache"
	"github.com/pantrykit/pantry-api/internal/services"
	apperrors "github.com/pantrykit/pantry-api/pkg/errors"
	"github.com/pantrykit/pantry-api/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateName(t *testing.T) {
	users := newFakeUserStore(existingUser())
	svc := services.NewUserService(users, nil, "", httpclient.NewStandardClient())

	u, err := svc.UpdateName(context.Background(), "user-a", "  Sam  ")
	require.NoError(t, err)
	assert.Equal(t, "Sam", u.Name)
}

func TestUserService_DeleteInvalidatesCachedAccount(t *testing.T) {
	users := newFakeUserStore(existingUser())
	lookups := 0
	accounts := cache.NewAccountCache(func(ctx context.Context, id string) (bool, error) {
		lookups++
		_, err := users.GetByID(ctx, id)
		return err == nil, nil
	}, time.Minute)

	exists, err := accounts.Exists(context.Background(), "user-a")
	require.NoError(t, err)
	require.True(t, exists)

	svc := services.NewUserService(users, accounts, "", httpclient.NewStandardClient())
	require.NoError(t, svc.Delete(context.Background(), "user-a"))

	exists, err = accounts.Exists(context.Background(), "user-a")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 1, lookups)

	_, err = svc.Get(context.Background(), "user-a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_DeleteUnknown(t *testing.T) {
	svc := services.NewUserService(newFakeUserStore(), nil, "", httpclient.NewStandardClient())
	assert.ErrorIs(t, svc.Delete(context.Background(), "ghost"), apperrors.ErrNotFound)
}
